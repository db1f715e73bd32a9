package statemachine

import (
	"context"
	"fmt"

	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/looplab/fsm"
)

// InstallationFSM wraps an installation record with its state machine
type InstallationFSM struct {
	installation *models.DCInstallation
	fsm          *fsm.FSM
}

// NewInstallationFSM creates a new installation state machine
func NewInstallationFSM(installation *models.DCInstallation) *InstallationFSM {
	ifsm := &InstallationFSM{
		installation: installation,
	}

	ifsm.fsm = fsm.NewFSM(
		installation.Status,
		fsm.Events{
			// pending → scheduled
			{Name: "schedule", Src: []string{models.InstallationStatusPending}, Dst: models.InstallationStatusScheduled},

			// pending/scheduled → delivered
			{Name: "deliver", Src: []string{models.InstallationStatusPending, models.InstallationStatusScheduled}, Dst: models.InstallationStatusDelivered},

			// delivered → installed
			{Name: "install", Src: []string{models.InstallationStatusDelivered}, Dst: models.InstallationStatusInstalled},

			// installed → verified
			{Name: "verify", Src: []string{models.InstallationStatusInstalled}, Dst: models.InstallationStatusVerified},

			// pending/scheduled/delivered → cancelled
			{Name: "cancel", Src: []string{models.InstallationStatusPending, models.InstallationStatusScheduled, models.InstallationStatusDelivered}, Dst: models.InstallationStatusCancelled},

			// cancelled → pending (reopen)
			{Name: "reopen", Src: []string{models.InstallationStatusCancelled}, Dst: models.InstallationStatusPending},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Schedule transitions the installation to scheduled state
func (s *InstallationFSM) Schedule(ctx context.Context) error {
	if !s.installation.MaySchedule() {
		return fmt.Errorf("installation cannot be scheduled in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "schedule")
}

// Deliver transitions the installation to delivered state
func (s *InstallationFSM) Deliver(ctx context.Context) error {
	if !s.installation.MayDeliver() {
		return fmt.Errorf("equipment cannot be marked delivered in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "deliver")
}

// Install transitions the installation to installed state
func (s *InstallationFSM) Install(ctx context.Context) error {
	if !s.installation.MayInstall() {
		return fmt.Errorf("equipment cannot be marked installed in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "install")
}

// Verify transitions the installation to verified state
func (s *InstallationFSM) Verify(ctx context.Context) error {
	if !s.installation.MayVerify() {
		return fmt.Errorf("installation cannot be verified in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "verify")
}

// Cancel transitions the installation to cancelled state
func (s *InstallationFSM) Cancel(ctx context.Context) error {
	if !s.installation.MayCancel() {
		return fmt.Errorf("installation cannot be cancelled in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "cancel")
}

// Reopen transitions a cancelled installation back to pending
func (s *InstallationFSM) Reopen(ctx context.Context) error {
	if !s.installation.MayReopen() {
		return fmt.Errorf("installation cannot be reopened in current state: %s", s.installation.Status)
	}
	return s.fire(ctx, "reopen")
}

func (s *InstallationFSM) fire(ctx context.Context, event string) error {
	if err := s.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to %s installation: %w", event, err)
	}
	s.installation.Status = s.fsm.Current()
	return nil
}
