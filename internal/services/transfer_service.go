package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/config"
	"shield-backend/internal/events"
	"shield-backend/internal/metrics"
	"shield-backend/internal/models"
	"shield-backend/internal/repository"
	"shield-backend/internal/solana"
)

// TransferService orchestrates private transfers as a two-phase saga:
// an optional top-up deposit, then the withdrawal to the recipient. The
// record is checkpointed after every transition.
type TransferService struct {
	mu        sync.Mutex
	pool      ShieldedPool
	notes     NoteSource
	fees      FeeSource
	repo      repository.TransferRepository
	publisher events.Publisher
	cfg       config.TransferConfig
	logger    *logrus.Logger

	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// NewTransferService Create transfer orchestrator. fees and publisher may be nil.
func NewTransferService(pool ShieldedPool, notes NoteSource, fees FeeSource, repo repository.TransferRepository, publisher events.Publisher, cfg config.TransferConfig, logger *logrus.Logger) *TransferService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TransferService{
		pool:      pool,
		notes:     notes,
		fees:      fees,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
		newID:     func() string { return uuid.New().String() },
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetPrivateBalance sums the unspent notes of the session.
func (s *TransferService) GetPrivateBalance(ctx context.Context) (uint64, error) {
	return s.notes.Balance(ctx)
}

// GetMaxWithdrawalAmount is the advisory maximum a single withdrawal can pay
// out: the two largest notes minus fees.
func (s *TransferService) GetMaxWithdrawalAmount(ctx context.Context) (uint64, error) {
	notes, err := s.notes.UnspentNotes(ctx)
	if err != nil {
		return 0, err
	}
	if len(notes) > circuitArity {
		notes = notes[:circuitArity]
	}
	return resolveFees(ctx, s.fees, s.cfg, s.logger).MaxWithdrawal(sumLamports(notes)), nil
}

// PrivateTransfer sends amountLamports to recipient through the pool,
// depositing first when the private balance is short.
func (s *TransferService) PrivateTransfer(ctx context.Context, amountLamports uint64, recipient solana.PublicKey) (*models.TransferRecord, error) {
	if amountLamports < s.cfg.MinWithdrawalLamports {
		return nil, fmt.Errorf("%w: %d < %d lamports", ErrBelowMinimumWithdrawal, amountLamports, s.cfg.MinWithdrawalLamports)
	}
	if recipient.IsZero() {
		return nil, fmt.Errorf("recipient is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &models.TransferRecord{
		ID:               s.newID(),
		Status:           models.TransferStatusCheckingBalance,
		Recipient:        recipient.String(),
		AmountLamports:   amountLamports,
		RequiredLamports: requiredWithMargin(amountLamports, s.cfg.SafetyMargin),
		Attempts:         1,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create transfer record: %w", err)
	}
	s.publish(ctx, record)
	log := s.logger.WithFields(logrus.Fields{
		"transfer_id":     record.ID,
		"amount_lamports": amountLamports,
		"recipient":       record.Recipient,
	})
	log.Info("[Transfer] started")

	balance, err := s.notes.Balance(ctx)
	if err != nil {
		return record, s.fail(record, models.TransferStageBalance, err)
	}
	record.BalanceLamports = balance

	if balance < record.RequiredLamports {
		topUp := record.RequiredLamports - balance

		// a submitted deposit must run to completion; caller cancellation
		// no longer applies from here on
		ctx = context.WithoutCancel(ctx)

		record.DepositLamports = topUp
		record.Transition(models.TransferStatusDepositing)
		s.checkpoint(ctx, record)
		log.WithFields(logrus.Fields{
			"balance_lamports": balance,
			"topup_lamports":   topUp,
		}).Info("[Transfer] balance short, depositing")

		dep, err := s.pool.Deposit(ctx, topUp)
		if dep != nil {
			// kept even on error: a broadcast deposit may still land
			record.DepositSignature = dep.Signature
		}
		if err != nil {
			return record, s.fail(record, models.TransferStageDeposit, err)
		}
		record.Transition(models.TransferStatusDeposited)
		s.checkpoint(ctx, record)

		s.waitForSettle(ctx, record)
	}

	return record, s.withdraw(ctx, record, recipient)
}

// ResumeTransfer re-runs the withdrawal phase of a transfer whose deposit
// landed but whose withdrawal did not.
func (s *TransferService) ResumeTransfer(ctx context.Context, id string) (*models.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Recoverable() {
		return record, fmt.Errorf("%w: %s is %s", ErrTransferNotRecoverable, id, record.Status)
	}
	recipient, err := solana.PublicKeyFromBase58(record.Recipient)
	if err != nil {
		return record, fmt.Errorf("stored recipient: %w", err)
	}

	record.Attempts++
	record.Stage = ""
	record.LastError = ""
	s.logger.WithFields(logrus.Fields{
		"transfer_id": record.ID,
		"attempt":     record.Attempts,
	}).Info("[Transfer] resuming withdrawal")

	return record, s.withdraw(context.WithoutCancel(ctx), record, recipient)
}

func (s *TransferService) withdraw(ctx context.Context, record *models.TransferRecord, recipient solana.PublicKey) error {
	record.Transition(models.TransferStatusWithdrawing)
	s.checkpoint(ctx, record)

	res, err := s.pool.Withdraw(ctx, record.AmountLamports, recipient)
	if err != nil {
		return s.fail(record, models.TransferStageWithdraw, err)
	}
	record.WithdrawSignature = res.Signature
	record.WithdrawFee = res.FeeLamports
	record.Transition(models.TransferStatusDone)
	s.checkpoint(ctx, record)
	metrics.TransfersTotal.WithLabelValues(string(models.TransferStatusDone)).Inc()

	s.logger.WithFields(logrus.Fields{
		"transfer_id":        record.ID,
		"deposit_signature":  record.DepositSignature,
		"withdraw_signature": record.WithdrawSignature,
		"fee_lamports":       record.WithdrawFee,
	}).Info("[Transfer] completed")
	return nil
}

// waitForSettle polls until the deposit is visible in the private balance.
// It is best effort: on timeout the withdrawal is attempted anyway.
func (s *TransferService) waitForSettle(ctx context.Context, record *models.TransferRecord) {
	start := time.Now()
	defer func() {
		metrics.TransferStageDuration.WithLabelValues("settle").Observe(time.Since(start).Seconds())
	}()

	interval := time.Duration(s.cfg.SettlePollIntervalMs) * time.Millisecond
	if interval <= 0 {
		_ = s.sleep(ctx, time.Duration(s.cfg.SettleDelayMs)*time.Millisecond)
		return
	}

	timeout := time.Duration(s.cfg.SettleTimeoutMs) * time.Millisecond
	var waited time.Duration
	for {
		if err := s.sleep(ctx, interval); err != nil {
			return
		}
		waited += interval

		balance, err := s.notes.Balance(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("transfer_id", record.ID).Warn("[Transfer] balance poll failed")
		} else if balance >= record.RequiredLamports {
			return
		}
		if waited >= timeout {
			s.logger.WithFields(logrus.Fields{
				"transfer_id": record.ID,
				"waited_ms":   waited.Milliseconds(),
			}).Warn("[Transfer] deposit not yet indexed, withdrawing anyway")
			return
		}
	}
}

func (s *TransferService) fail(record *models.TransferRecord, stage models.TransferStage, cause error) error {
	record.Stage = stage
	record.LastError = cause.Error()
	record.Transition(models.TransferStatusFailed)
	s.checkpoint(context.Background(), record)
	metrics.TransfersTotal.WithLabelValues(string(models.TransferStatusFailed)).Inc()

	s.logger.WithFields(logrus.Fields{
		"transfer_id": record.ID,
		"stage":       stage,
		"recoverable": record.Recoverable(),
		"error":       cause,
	}).Error("[Transfer] failed")
	return &TransferFailedError{Stage: stage, TransferID: record.ID, Cause: cause}
}

// checkpoint persists and publishes record. Persistence errors are logged;
// the on-chain outcome is not rolled back because of them.
func (s *TransferService) checkpoint(ctx context.Context, record *models.TransferRecord) {
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.WithFields(logrus.Fields{
			"transfer_id": record.ID,
			"status":      record.Status,
			"error":       err,
		}).Error("[Transfer] failed to persist checkpoint")
	}
	s.publish(ctx, record)
}

func (s *TransferService) publish(ctx context.Context, record *models.TransferRecord) {
	if err := s.publisher.PublishTransferEvent(ctx, events.NewTransferEvent(record)); err != nil {
		s.logger.WithError(err).WithField("transfer_id", record.ID).Warn("[Transfer] event publish failed")
	}
}

// GetTransfer loads a transfer record.
func (s *TransferService) GetTransfer(ctx context.Context, id string) (*models.TransferRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecoverable lists transfers whose deposit landed without a withdrawal.
func (s *TransferService) ListRecoverable(ctx context.Context) ([]*models.TransferRecord, error) {
	return s.repo.ListRecoverable(ctx)
}

// IsNotFound reports whether err means the transfer does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrTransferNotFound)
}
