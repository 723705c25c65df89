package notifier

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/messaging"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// displayTimeLayout формат времени брони в тексте сообщения
const displayTimeLayout = "2006-01-02 15:04:05"

// MessageSender отправляет сообщение участнику коворкинга
type MessageSender interface {
	SendMessage(ctx context.Context, msg messaging.Message) error
}

// IssuedCode один выданный код для включения в сообщение
type IssuedCode struct {
	DoorLabel string
	Code      int
}

// Request параметры уведомления о выданных кодах
type Request struct {
	CoworkerID    int64
	HolderName    string
	Codes         []IssuedCode
	Window        domain.AccessWindow
	ResourceName  string
	BookingNumber int64
}

// Notifier формирует и отправляет участнику сообщение с кодами доступа
type Notifier struct {
	sender  MessageSender
	display *time.Location
	logger  logger.Logger
}

// New создает новый уведомитель. displayTimezone — часовой пояс,
// в котором время брони отображается участнику.
func New(sender MessageSender, displayTimezone string, log logger.Logger) (*Notifier, error) {
	location, err := time.LoadLocation(displayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", displayTimezone, err)
	}
	return &Notifier{sender: sender, display: location, logger: log}, nil
}

// Notify отправляет участнику сообщение с выданными кодами
func (n *Notifier) Notify(ctx context.Context, req Request) error {
	if len(req.Codes) == 0 {
		return errors.New(errors.ErrInvalidRequest, "notification requires at least one issued code")
	}

	msg := messaging.Message{
		CoworkerID: req.CoworkerID,
		Subject:    fmt.Sprintf("Passcode for your Booking for %s - #%d", req.ResourceName, req.BookingNumber),
		Body:       n.renderBody(req),
	}

	if err := n.sender.SendMessage(ctx, msg); err != nil {
		return err
	}

	n.logger.Info("Passcode notification sent",
		logger.Int64("coworker_id", req.CoworkerID),
		logger.Int("codes", len(req.Codes)))
	return nil
}

// renderBody собирает HTML тело сообщения. Коды перечисляются
// от последнего выданного к первому, каждый с меткой двери и
// символом # в конце.
func (n *Notifier) renderBody(req Request) string {
	var codes bytes.Buffer
	for i := len(req.Codes) - 1; i >= 0; i-- {
		codes.WriteString(fmt.Sprintf("%s: %d #", req.Codes[i].DoorLabel, req.Codes[i].Code))
		if i > 0 {
			codes.WriteString(" \n ")
		}
	}

	validFrom := req.Window.EffectiveStart().In(n.display).Format(displayTimeLayout)
	validTo := req.Window.To.In(n.display).Format(displayTimeLayout)

	var body bytes.Buffer
	body.WriteString("<!DOCTYPE html>")
	body.WriteString("<html>")
	body.WriteString("<head>")
	body.WriteString("<style>")
	body.WriteString("body { font-family: Arial, sans-serif; }")
	body.WriteString("p { margin: 0; padding: 5px 0; }")
	body.WriteString(".passcode-info { font-weight: bold; white-space: pre-line; }")
	body.WriteString("</style>")
	body.WriteString("</head>")
	body.WriteString("<body>")
	body.WriteString(fmt.Sprintf("<p>Hello %s,</p>", req.HolderName))
	body.WriteString("<p>Here are your access passcodes:</p>")
	body.WriteString(fmt.Sprintf("<p class=\"passcode-info\">%s </p>", codes.String()))
	body.WriteString(fmt.Sprintf("<p>Valid From: %s</p>", validFrom))
	body.WriteString(fmt.Sprintf("<p>Valid To: %s</p>", validTo))
	body.WriteString("<p>Thank you,</p>")
	body.WriteString("<p>Your Coworking Team</p>")
	body.WriteString("</body>")
	body.WriteString("</html>")

	return body.String()
}
