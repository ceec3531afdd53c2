package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shield-backend/internal/config"
)

func TestProveDecodesComponents(t *testing.T) {
	var got TransactWitness
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/proof/transact", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := ProofResponse{
			RequestID: "req-1",
			Success:   true,
			ProofA:    "0x" + strings.Repeat("01", 64),
			ProofB:    strings.Repeat("02", 128),
			ProofC:    "0x" + strings.Repeat("03", 64),
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewProverClient(config.ProverConfig{BaseURL: srv.URL}, quietLogger())
	resp, err := c.Prove(context.Background(), &TransactWitness{Root: "7", InPathIndices: []int64{3, 0}})
	require.NoError(t, err)
	assert.Equal(t, "7", got.Root)
	assert.Equal(t, []int64{3, 0}, got.InPathIndices)

	a, b, cc, err := resp.Components()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), a[63])
	assert.Equal(t, byte(0x02), b[0])
	assert.Equal(t, byte(0x03), cc[0])
}

func TestProveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewProverClient(config.ProverConfig{BaseURL: srv.URL}, quietLogger())
	_, err := c.Prove(context.Background(), &TransactWitness{})
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	msg := "constraint failed"
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ProofResponse{Success: false, ErrorMessage: &msg})
	}))
	defer failing.Close()

	c = NewProverClient(config.ProverConfig{BaseURL: failing.URL}, quietLogger())
	_, err = c.Prove(context.Background(), &TransactWitness{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), msg)
}

func TestProofComponentsRejectsWrongWidth(t *testing.T) {
	r := &ProofResponse{ProofA: "0x01", ProofB: "", ProofC: ""}
	_, _, _, err := r.Components()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proof_a")
}
