package solana

import (
	"errors"
	"fmt"

	"shield-backend/internal/layout"
)

// AccountMeta describes how an instruction touches an account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

func Meta(pk PublicKey, signer, writable bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: signer, IsWritable: writable}
}

// Instruction is an uncompiled program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader counts signer and read-only accounts in AccountKeys.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into Message.AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy (non-versioned) transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// Transaction pairs a message with one signature slot per required signer.
type Transaction struct {
	Signatures []Signature
	Message    *Message
}

var ErrSignerNotFound = errors.New("solana: key is not a required signer")

// NewMessage compiles instructions into a legacy message with payer as the
// fee payer. Keys are ordered writable signers, read-only signers, writable
// non-signers, read-only non-signers; first appearance wins inside a group.
func NewMessage(payer PublicKey, instructions []Instruction, blockhash Hash) (*Message, error) {
	type entry struct {
		key      PublicKey
		signer   bool
		writable bool
	}
	var order []PublicKey
	entries := make(map[PublicKey]*entry)
	add := func(pk PublicKey, signer, writable bool) {
		if e, ok := entries[pk]; ok {
			e.signer = e.signer || signer
			e.writable = e.writable || writable
			return
		}
		entries[pk] = &entry{key: pk, signer: signer, writable: writable}
		order = append(order, pk)
	}

	add(payer, true, true)
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc.PublicKey, acc.IsSigner, acc.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	var groups [4][]PublicKey
	for _, pk := range order {
		e := entries[pk]
		switch {
		case e.signer && e.writable:
			groups[0] = append(groups[0], pk)
		case e.signer:
			groups[1] = append(groups[1], pk)
		case e.writable:
			groups[2] = append(groups[2], pk)
		default:
			groups[3] = append(groups[3], pk)
		}
	}

	keys := make([]PublicKey, 0, len(order))
	for _, g := range groups {
		keys = append(keys, g...)
	}
	if len(keys) > 256 {
		return nil, fmt.Errorf("too many accounts in message: %d", len(keys))
	}
	index := make(map[PublicKey]uint8, len(keys))
	for i, pk := range keys {
		index[pk] = uint8(i)
	}

	msg := &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       uint8(len(groups[0]) + len(groups[1])),
			NumReadonlySignedAccounts:   uint8(len(groups[1])),
			NumReadonlyUnsignedAccounts: uint8(len(groups[3])),
		},
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
	}
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           append([]byte(nil), ix.Data...),
		}
		for i, acc := range ix.Accounts {
			compiled.Accounts[i] = index[acc.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}
	return msg, nil
}

// Serialize encodes the message in wire format; this is the byte string
// every signer signs.
func (m *Message) Serialize() ([]byte, error) {
	w := layout.NewWriter()
	w.WriteU8(m.Header.NumRequiredSignatures)
	w.WriteU8(m.Header.NumReadonlySignedAccounts)
	w.WriteU8(m.Header.NumReadonlyUnsignedAccounts)

	if err := w.WriteCompactU16(len(m.AccountKeys)); err != nil {
		return nil, err
	}
	for _, pk := range m.AccountKeys {
		w.WriteRaw(pk[:])
	}
	w.WriteRaw(m.RecentBlockhash[:])

	if err := w.WriteCompactU16(len(m.Instructions)); err != nil {
		return nil, err
	}
	for _, ix := range m.Instructions {
		w.WriteU8(ix.ProgramIDIndex)
		if err := w.WriteCompactU16(len(ix.Accounts)); err != nil {
			return nil, err
		}
		w.WriteRaw(ix.Accounts)
		if err := w.WriteCompactU16(len(ix.Data)); err != nil {
			return nil, err
		}
		w.WriteRaw(ix.Data)
	}
	return w.Bytes(), nil
}

// Signers returns the keys that must sign, in signature-slot order.
func (m *Message) Signers() []PublicKey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

// NewTransaction builds an unsigned transaction with empty signature slots.
func NewTransaction(payer PublicKey, instructions []Instruction, blockhash Hash) (*Transaction, error) {
	msg, err := NewMessage(payer, instructions, blockhash)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}, nil
}

// SetSignature places sig in the slot belonging to signer.
func (tx *Transaction) SetSignature(signer PublicKey, sig Signature) error {
	for i, pk := range tx.Message.Signers() {
		if pk == signer {
			tx.Signatures[i] = sig
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSignerNotFound, signer)
}

// IsFullySigned reports whether every signature slot is filled.
func (tx *Transaction) IsFullySigned() bool {
	for _, sig := range tx.Signatures {
		if sig.IsZero() {
			return false
		}
	}
	return true
}

// Serialize encodes signatures followed by the message.
func (tx *Transaction) Serialize() ([]byte, error) {
	msg, err := tx.Message.Serialize()
	if err != nil {
		return nil, err
	}
	w := layout.NewWriter()
	if err := w.WriteCompactU16(len(tx.Signatures)); err != nil {
		return nil, err
	}
	for _, sig := range tx.Signatures {
		w.WriteRaw(sig[:])
	}
	w.WriteRaw(msg)
	return w.Bytes(), nil
}

// SetComputeUnitLimit returns a compute budget instruction raising the
// transaction's compute unit limit.
func SetComputeUnitLimit(units uint32) Instruction {
	w := layout.NewWriter()
	w.WriteU8(2)
	w.WriteU32LE(units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: w.Bytes()}
}
