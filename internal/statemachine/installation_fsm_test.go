package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dcinstall-api/internal/models"
)

func TestInstallationFSM_HappyPath(t *testing.T) {
	installation := &models.DCInstallation{Status: models.InstallationStatusPending}
	ctx := context.Background()

	machine := NewInstallationFSM(installation)
	require.NoError(t, machine.Schedule(ctx))
	assert.Equal(t, models.InstallationStatusScheduled, installation.Status)

	machine = NewInstallationFSM(installation)
	require.NoError(t, machine.Deliver(ctx))
	assert.Equal(t, models.InstallationStatusDelivered, installation.Status)

	machine = NewInstallationFSM(installation)
	require.NoError(t, machine.Install(ctx))
	assert.Equal(t, models.InstallationStatusInstalled, installation.Status)

	machine = NewInstallationFSM(installation)
	require.NoError(t, machine.Verify(ctx))
	assert.Equal(t, models.InstallationStatusVerified, installation.Status)
}

func TestInstallationFSM_DeliverSkipsScheduling(t *testing.T) {
	installation := &models.DCInstallation{Status: models.InstallationStatusPending}

	machine := NewInstallationFSM(installation)
	require.NoError(t, machine.Deliver(context.Background()))
	assert.Equal(t, models.InstallationStatusDelivered, installation.Status)
}

func TestInstallationFSM_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status string
		fire   func(m *InstallationFSM, ctx context.Context) error
	}{
		{
			name:   "cannot verify a pending installation",
			status: models.InstallationStatusPending,
			fire:   func(m *InstallationFSM, ctx context.Context) error { return m.Verify(ctx) },
		},
		{
			name:   "cannot install before delivery",
			status: models.InstallationStatusScheduled,
			fire:   func(m *InstallationFSM, ctx context.Context) error { return m.Install(ctx) },
		},
		{
			name:   "cannot schedule twice",
			status: models.InstallationStatusScheduled,
			fire:   func(m *InstallationFSM, ctx context.Context) error { return m.Schedule(ctx) },
		},
		{
			name:   "cannot cancel after installation",
			status: models.InstallationStatusInstalled,
			fire:   func(m *InstallationFSM, ctx context.Context) error { return m.Cancel(ctx) },
		},
		{
			name:   "cannot reopen an active record",
			status: models.InstallationStatusPending,
			fire:   func(m *InstallationFSM, ctx context.Context) error { return m.Reopen(ctx) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installation := &models.DCInstallation{Status: tt.status}
			machine := NewInstallationFSM(installation)

			err := tt.fire(machine, context.Background())
			assert.Error(t, err)
			// The record keeps its state on a rejected transition
			assert.Equal(t, tt.status, installation.Status)
		})
	}
}

func TestInstallationFSM_CancelAndReopen(t *testing.T) {
	installation := &models.DCInstallation{Status: models.InstallationStatusDelivered}
	ctx := context.Background()

	machine := NewInstallationFSM(installation)
	require.NoError(t, machine.Cancel(ctx))
	assert.Equal(t, models.InstallationStatusCancelled, installation.Status)

	machine = NewInstallationFSM(installation)
	require.NoError(t, machine.Reopen(ctx))
	assert.Equal(t, models.InstallationStatusPending, installation.Status)
}
