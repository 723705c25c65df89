package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...logger.Field)    {}
func (noopLogger) Info(msg string, fields ...logger.Field)     {}
func (noopLogger) Warn(msg string, fields ...logger.Field)     {}
func (noopLogger) Error(msg string, fields ...logger.Field)    {}
func (n noopLogger) With(fields ...logger.Field) logger.Logger { return n }
func (noopLogger) Sync() error                                 { return nil }

// pagedLister отдает заранее подготовленные страницы замков
type pagedLister struct {
	pages [][]lockvendor.Lock
	calls int
	err   error
}

func (p *pagedLister) ListLocks(ctx context.Context, pageNo int) ([]lockvendor.Lock, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if pageNo > len(p.pages) {
		return nil, nil
	}
	return p.pages[pageNo-1], nil
}

func TestDirectory_Resolve_FirstPage(t *testing.T) {
	lister := &pagedLister{pages: [][]lockvendor.Lock{
		{
			{LockID: 101, LockMac: "EC:75:5D:81:64:FF"},
			{LockID: 102, LockMac: "B1:48:81:51:79:B5"},
		},
	}}
	dir := New(lister, noopLogger{})

	lockID, err := dir.Resolve(context.Background(), "B1:48:81:51:79:B5")
	require.NoError(t, err)
	assert.Equal(t, int64(102), lockID)
	assert.Equal(t, 1, lister.calls)
}

func TestDirectory_Resolve_LaterPage(t *testing.T) {
	lister := &pagedLister{pages: [][]lockvendor.Lock{
		{{LockID: 101, LockMac: "EC:75:5D:81:64:FF"}},
		{{LockID: 201, LockMac: "D7:2C:71:36:9C:C5"}},
	}}
	dir := New(lister, noopLogger{})

	lockID, err := dir.Resolve(context.Background(), "D7:2C:71:36:9C:C5")
	require.NoError(t, err)
	assert.Equal(t, int64(201), lockID)
	assert.Equal(t, 2, lister.calls)
}

func TestDirectory_Resolve_FirstMatchWins(t *testing.T) {
	lister := &pagedLister{pages: [][]lockvendor.Lock{
		{
			{LockID: 101, LockMac: "EC:75:5D:81:64:FF"},
			{LockID: 999, LockMac: "EC:75:5D:81:64:FF"},
		},
	}}
	dir := New(lister, noopLogger{})

	lockID, err := dir.Resolve(context.Background(), "EC:75:5D:81:64:FF")
	require.NoError(t, err)
	assert.Equal(t, int64(101), lockID)
}

func TestDirectory_Resolve_NotFound(t *testing.T) {
	lister := &pagedLister{pages: [][]lockvendor.Lock{
		{{LockID: 101, LockMac: "EC:75:5D:81:64:FF"}},
	}}
	dir := New(lister, noopLogger{})

	_, err := dir.Resolve(context.Background(), "00:00:00:00:00:00")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestDirectory_Resolve_EmptyMac(t *testing.T) {
	dir := New(&pagedLister{}, noopLogger{})

	_, err := dir.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidRequest))
}

func TestDirectory_Resolve_VendorError(t *testing.T) {
	lister := &pagedLister{err: errors.New(errors.ErrTransportFailure, "connection reset")}
	dir := New(lister, noopLogger{})

	_, err := dir.Resolve(context.Background(), "EC:75:5D:81:64:FF")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransportFailure))
}
