package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"shield-backend/internal/encryption"
	"shield-backend/internal/metrics"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/solana"
)

const defaultPageSize = 20000

// NoteService discovers the session's unspent notes.
type NoteService struct {
	outputs  OutputSource
	accounts AccountChecker
	enc      *encryption.Service
	deriver  *pda.Deriver
	mint     solana.PublicKey
	pageSize int64
	logger   *logrus.Logger
}

// NewNoteService Create note service
func NewNoteService(outputs OutputSource, accounts AccountChecker, enc *encryption.Service, deriver *pda.Deriver, pageSize int, logger *logrus.Logger) *NoteService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &NoteService{
		outputs:  outputs,
		accounts: accounts,
		enc:      enc,
		deriver:  deriver,
		mint:     solana.NativeMint,
		pageSize: int64(pageSize),
		logger:   logger,
	}
}

// UnspentNotes decrypts every output the session keys can open, keeps the
// native-pool notes, drops zero notes and notes whose nullifier account
// exists, and sorts the rest by amount descending.
func (s *NoteService) UnspentNotes(ctx context.Context) ([]*note.Note, error) {
	if !s.enc.IsInitialized() {
		return nil, encryption.ErrKeyNotInitialized
	}

	owned, err := s.decryptAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, nil
	}

	// each note is spent when either slot's nullifier account exists
	keys := make([]solana.PublicKey, 0, 2*len(owned))
	for _, n := range owned {
		nf, err := n.Nullifier()
		if err != nil {
			return nil, fmt.Errorf("note nullifier: %w", err)
		}
		nb := note.FieldBytes(nf)
		for slot := 0; slot < 2; slot++ {
			addr, err := s.deriver.NullifierAddress(nb, slot)
			if err != nil {
				return nil, err
			}
			keys = append(keys, addr)
		}
	}
	exists, err := s.accounts.GetAccountsExist(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("check nullifier accounts: %w", err)
	}

	unspent := make([]*note.Note, 0, len(owned))
	for i, n := range owned {
		if exists[2*i] || exists[2*i+1] {
			continue
		}
		unspent = append(unspent, n)
	}
	sort.SliceStable(unspent, func(i, j int) bool {
		return unspent[i].Amount.Cmp(unspent[j].Amount) > 0
	})

	s.logger.WithFields(logrus.Fields{
		"owned":   len(owned),
		"unspent": len(unspent),
	}).Debug("[Notes] unspent notes resolved")
	return unspent, nil
}

func (s *NoteService) decryptAll(ctx context.Context) ([]*note.Note, error) {
	var (
		owned    []*note.Note
		seen      = make(map[string]struct{})
		foreign   int
		otherMint int
		position  int64
	)
	for start := int64(0); ; start += s.pageSize {
		page, err := s.outputs.GetEncryptedOutputs(ctx, start, start+s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch encrypted outputs: %w", err)
		}
		for i, raw := range page.Decode() {
			position = start + int64(i)
			if len(raw) == 0 {
				continue
			}
			n, err := s.enc.DecryptNote(raw)
			if err != nil {
				metrics.NoteDecryptFailures.Inc()
				if errors.Is(err, encryption.ErrInvalidKeyOrCorruptData) {
					// another owner's output, or corrupt
					foreign++
					s.logger.WithField("position", position).Debug("[Notes] skipping output not sealed for this session")
					continue
				}
				s.logger.WithFields(logrus.Fields{
					"position": position,
					"error":    err,
				}).Warn("[Notes] skipping undecodable note")
				continue
			}
			if n.IsZero() {
				continue
			}
			if n.MintAddress != s.mint {
				otherMint++
				continue
			}
			if n.Index < 0 {
				s.logger.WithField("position", position).Warn("[Notes] skipping note without a tree index")
				continue
			}
			commitment, err := n.Commitment()
			if err != nil {
				return nil, err
			}
			key := commitment.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			metrics.NotesDiscovered.WithLabelValues(string(n.Version)).Inc()
			owned = append(owned, n)
		}
		if !page.HasMore || len(page.EncryptedOutputs) == 0 {
			break
		}
	}

	entry := s.logger.WithFields(logrus.Fields{
		"scanned":    position + 1,
		"owned":      len(owned),
		"foreign":    foreign,
		"other_mint": otherMint,
	})
	if foreign > 0 || otherMint > 0 {
		entry.Info("[Notes] encrypted outputs scanned, some skipped")
	} else {
		entry.Debug("[Notes] encrypted outputs scanned")
	}
	return owned, nil
}

// Balance sums the unspent notes.
func (s *NoteService) Balance(ctx context.Context) (uint64, error) {
	notes, err := s.UnspentNotes(ctx)
	if err != nil {
		return 0, err
	}
	total := sumLamports(notes)
	metrics.PrivateBalanceLamports.Set(float64(total))
	return total, nil
}

func sumLamports(notes []*note.Note) uint64 {
	var total uint64
	for _, n := range notes {
		total += n.Lamports()
	}
	return total
}
