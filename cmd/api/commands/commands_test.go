package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkbook/studio/internal/adapters/repository"
	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/logger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewBookingsCommand()
	switch args[0] {
	case "admin":
		cmd = NewAdminCommand()
	case "version":
		cmd = NewVersionCommand()
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args[0] == "version" {
		cmd.SetArgs(nil)
	} else {
		cmd.SetArgs(args[1:])
	}
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := execute(t, "admin", "hash-password", "tattoo-time")
	require.NoError(t, err)

	hash := bytes.TrimSpace([]byte(out))
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("tattoo-time")))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "InkBook "+Version)
}

func TestBookingsCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bookings.json")
	t.Setenv("STORAGE_DRIVER", "json")
	t.Setenv("BOOKINGS_FILE", file)
	t.Setenv("STUDIO_TIMEZONE", "UTC")

	repo, err := repository.NewJSONRepository(file, logger.NewNop())
	require.NoError(t, err)

	keep := &entities.Booking{Name: "Ana", Email: "ana@example.com", Date: "2030-02-10", Time: "17:00"}
	drop := &entities.Booking{Name: "Bea", Phone: "600123456", Date: "2030-02-11", Time: "11:00"}
	for _, b := range []*entities.Booking{keep, drop} {
		b.Normalize()
		b.ID = uuid.New()
		require.NoError(t, repo.Create(context.Background(), b))
	}

	out, err := execute(t, "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "600123456")

	out, err = execute(t, "bookings", "list", "--date", "2030-02-10")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.NotContains(t, out, "Bea")

	_, err = execute(t, "bookings", "list", "--status", "archived")
	assert.Error(t, err)

	out, err = execute(t, "bookings", "delete", drop.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = execute(t, "bookings", "delete", drop.ID.String())
	assert.ErrorIs(t, err, entities.ErrBookingNotFound)

	_, err = execute(t, "bookings", "delete", "nope")
	assert.Error(t, err)

	require.NoError(t, repo.Reload())
	assert.Equal(t, 1, repo.Len())
}

type fakeLifecycle struct {
	startErr    error
	stopped     chan struct{}
	shutdowns   int
	shutdownCtx context.Context
}

func (f *fakeLifecycle) Start(string) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return nil
}

func (f *fakeLifecycle) Shutdown(ctx context.Context) error {
	f.shutdowns++
	f.shutdownCtx = ctx
	if f.stopped != nil {
		close(f.stopped)
	}
	return nil
}

func TestServeShutsDownWhenStartFails(t *testing.T) {
	bindErr := errors.New("listen tcp :3000: bind: address already in use")
	srv := &fakeLifecycle{startErr: bindErr}

	err := serve(context.Background(), srv, ":3000", time.Minute, logger.NewNop())

	assert.ErrorIs(t, err, bindErr)
	assert.Equal(t, 1, srv.shutdowns)
	deadline, ok := srv.shutdownCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := &fakeLifecycle{stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, serve(ctx, srv, ":3000", time.Second, logger.NewNop()))
	assert.Equal(t, 1, srv.shutdowns)
}
