package services

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/encryption"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/solana"
)

var testProgramID = solana.MustPublicKeyFromBase58("9fhQBbumKEFuXtMBDw8AaQyAjCorLGJQiS3skWZdQyQD")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testSignature(seed byte) []byte {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = seed + byte(i)
	}
	return sig
}

func newTestEnc(t *testing.T, seed byte) *encryption.Service {
	t.Helper()
	enc := encryption.NewService(quietLogger())
	require.NoError(t, enc.DeriveKeys(testSignature(seed)))
	return enc
}

func newTestDeriver(t *testing.T) *pda.Deriver {
	t.Helper()
	d, err := pda.NewDeriver(testProgramID, 64)
	require.NoError(t, err)
	return d
}

// ownedNote builds an indexed native note for the session's keypair.
func ownedNote(t *testing.T, enc *encryption.Service, version note.Version, amount int64, index int64) *note.Note {
	t.Helper()
	kp, err := enc.Keypair(version)
	require.NoError(t, err)
	n, err := note.New(big.NewInt(amount), kp, solana.NativeMint, version)
	require.NoError(t, err)
	n.Index = index
	return n
}

// fakeNotes is an in-memory NoteSource.
type fakeNotes struct {
	mu           sync.Mutex
	balance      uint64
	notes        []*note.Note
	err          error
	balanceCalls int
}

func (f *fakeNotes) UnspentNotes(ctx context.Context) ([]*note.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]*note.Note(nil), f.notes...), nil
}

func (f *fakeNotes) Balance(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if f.err != nil {
		return 0, f.err
	}
	if f.notes != nil {
		return sumLamports(f.notes), nil
	}
	return f.balance, nil
}

func (f *fakeNotes) add(lamports uint64) {
	f.mu.Lock()
	f.balance += lamports
	f.mu.Unlock()
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}
