package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AccessBridgePlatform/internal/domain"
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

type fakeVendor struct {
	pages     [][]lockvendor.Passcode
	deleted   []int64
	deleteErr error
}

func (f *fakeVendor) ListPasscodes(ctx context.Context, lockID int64, pageNo int) ([]lockvendor.Passcode, error) {
	if pageNo > len(f.pages) {
		return nil, nil
	}
	return f.pages[pageNo-1], nil
}

func (f *fakeVendor) DeletePasscode(ctx context.Context, lockID, keyboardPwdID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, keyboardPwdID)
	return nil
}

func testWindow(t *testing.T) domain.AccessWindow {
	t.Helper()
	window, err := domain.ParseWindow("2026-03-10T09:00:00Z", "2026-03-10T17:00:00Z")
	require.NoError(t, err)
	return window
}

func TestLocator_Find_ExactMatch(t *testing.T) {
	window := testWindow(t)
	vendor := &fakeVendor{pages: [][]lockvendor.Passcode{
		{
			{KeyboardPwdID: 1, StartDate: window.StartMs() + 1000, EndDate: window.EndMs()},
			{KeyboardPwdID: 2, StartDate: window.StartMs(), EndDate: window.EndMs()},
		},
	}}
	loc := New(vendor, noopLogger{})

	passcode, err := loc.Find(context.Background(), 101, window)
	require.NoError(t, err)
	assert.Equal(t, int64(2), passcode.KeyboardPwdID)
}

func TestLocator_Find_OneMillisecondOff(t *testing.T) {
	window := testWindow(t)
	vendor := &fakeVendor{pages: [][]lockvendor.Passcode{
		{
			{KeyboardPwdID: 1, StartDate: window.StartMs() + 1, EndDate: window.EndMs()},
			{KeyboardPwdID: 2, StartDate: window.StartMs(), EndDate: window.EndMs() - 1},
		},
	}}
	loc := New(vendor, noopLogger{})

	_, err := loc.Find(context.Background(), 101, window)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestLocator_Find_LaterPage(t *testing.T) {
	window := testWindow(t)
	vendor := &fakeVendor{pages: [][]lockvendor.Passcode{
		{{KeyboardPwdID: 1, StartDate: 1, EndDate: 2}},
		{{KeyboardPwdID: 7, StartDate: window.StartMs(), EndDate: window.EndMs()}},
	}}
	loc := New(vendor, noopLogger{})

	passcode, err := loc.Find(context.Background(), 101, window)
	require.NoError(t, err)
	assert.Equal(t, int64(7), passcode.KeyboardPwdID)
}

func TestLocator_Find_NoPasscodes(t *testing.T) {
	loc := New(&fakeVendor{}, noopLogger{})

	_, err := loc.Find(context.Background(), 101, testWindow(t))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestLocator_Revoke(t *testing.T) {
	window := testWindow(t)
	vendor := &fakeVendor{pages: [][]lockvendor.Passcode{
		{{KeyboardPwdID: 9001, StartDate: window.StartMs(), EndDate: window.EndMs()}},
	}}
	loc := New(vendor, noopLogger{})

	err := loc.Revoke(context.Background(), 101, window)
	require.NoError(t, err)
	assert.Equal(t, []int64{9001}, vendor.deleted)
}

func TestLocator_Revoke_NotFound(t *testing.T) {
	vendor := &fakeVendor{}
	loc := New(vendor, noopLogger{})

	err := loc.Revoke(context.Background(), 101, testWindow(t))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
	assert.Empty(t, vendor.deleted)
}

func TestLocator_Revoke_DeleteFails(t *testing.T) {
	window := testWindow(t)
	vendor := &fakeVendor{
		pages: [][]lockvendor.Passcode{
			{{KeyboardPwdID: 9001, StartDate: window.StartMs(), EndDate: window.EndMs()}},
		},
		deleteErr: errors.New(errors.ErrVendorRejected, "operation failed"),
	}
	loc := New(vendor, noopLogger{})

	err := loc.Revoke(context.Background(), 101, window)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrVendorRejected))
}
