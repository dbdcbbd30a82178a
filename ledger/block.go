/*
 * ledgergraph
 *
 * Package ledger implements the hash-chained, signed block sequence that
 * anchors every edge-mutation (component G, §3 "Block", §4.G).
 */
package ledger

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/krotik/ledgergraph/cryptoutil"
)

/*
DataType discriminates the three variants of a block's payload (§3
"Block", §9 "Block data tagged union").
*/
type DataType string

const (
	DataRootNode  DataType = "RootNode"
	DataValidator DataType = "ValidatorData"
	DataEdge      DataType = "EdgeData"
)

/*
Data is the tagged union carried by a block. Only the fields relevant to
Type are meaningful; the rest render as JSON null in the canonical and
wire encodings (§9 "data_type discriminator field with null for the
unused variant slots").
*/
type Data struct {
	Type DataType

	// ValidatorData
	PublicKey string
	AccountID string

	// EdgeData
	FromID string
	ToID   string
	Weight int64
}

/*
Block is a single signed, hash-linked ledger record (§3 "Block"). Field
tags give it the wire shape §6 requires for gossip ("Block JSON matches
§3 exactly ... numerically for the mining/validation canonical form").
*/
type Block struct {
	ID           uint64 `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   int    `json:"difficulty"`
	Validator    string `json:"validator"` // hex Ed25519 public key, empty for genesis
	Signature    string `json:"signature"` // hex Ed25519 signature, empty for genesis
	Data         Data   `json:"data"`
}

/*
dataJSON renders Data as the JSON encoding described in §9: a
"data_type" discriminator plus every variant field, null where unused.
encoding/json sorts map keys alphabetically when marshaling a
map[string]interface{}, which is exactly the "keys sorted alphabetically"
rule §4.B requires - no custom ordered-marshaler is needed.
*/
func dataJSON(d Data) ([]byte, error) {
	m := map[string]interface{}{
		"data_type":  string(d.Type),
		"public_key": nil,
		"account_id": nil,
		"from_id":    nil,
		"to_id":      nil,
		"weight":     nil,
	}

	switch d.Type {
	case DataValidator:
		m["public_key"] = d.PublicKey
		m["account_id"] = d.AccountID
	case DataEdge:
		m["from_id"] = d.FromID
		m["to_id"] = d.ToID
		m["weight"] = d.Weight
	}

	return json.Marshal(m)
}

/*
MarshalJSON renders Data on the wire in the same shape dataJSON computes
for hashing, so a gossiped block's JSON matches its canonical form
exactly (§6 "Wire format").
*/
func (d Data) MarshalJSON() ([]byte, error) {
	return dataJSON(d)
}

/*
UnmarshalJSON parses the data_type discriminator shape back into the
tagged union, ignoring the variant fields that do not apply to d.Type.
*/
func (d *Data) UnmarshalJSON(b []byte) error {
	var m struct {
		DataType  string  `json:"data_type"`
		PublicKey *string `json:"public_key"`
		AccountID *string `json:"account_id"`
		FromID    *string `json:"from_id"`
		ToID      *string `json:"to_id"`
		Weight    *int64  `json:"weight"`
	}

	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	d.Type = DataType(m.DataType)
	if m.PublicKey != nil {
		d.PublicKey = *m.PublicKey
	}
	if m.AccountID != nil {
		d.AccountID = *m.AccountID
	}
	if m.FromID != nil {
		d.FromID = *m.FromID
	}
	if m.ToID != nil {
		d.ToID = *m.ToID
	}
	if m.Weight != nil {
		d.Weight = *m.Weight
	}

	return nil
}

/*
canonicalBytes renders the fixed-order field concatenation used for both
hashing and signing (§4.B): id, timestamp, previous_hash, nonce,
difficulty, validator, data_json. hash and signature are never part of
their own input.
*/
func canonicalBytes(b *Block) ([]byte, error) {
	dj, err := dataJSON(b.Data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(strconv.FormatUint(b.ID, 10))
	buf.WriteString(strconv.FormatInt(b.Timestamp, 10))
	buf.WriteString(b.PreviousHash)
	buf.WriteString(strconv.FormatUint(b.Nonce, 10))
	buf.WriteString(strconv.Itoa(b.Difficulty))
	buf.WriteString(b.Validator)
	buf.Write(dj)

	return buf.Bytes(), nil
}

/*
computeHash recomputes the block's hash from its current fields.
*/
func computeHash(b *Block) (string, error) {
	cb, err := canonicalBytes(b)
	if err != nil {
		return "", err
	}
	return cryptoutil.SHA256Hex(cb), nil
}

/*
sign produces the Ed25519 signature over the block's canonical bytes
using the given hex-encoded private key.
*/
func sign(b *Block, privKeyHex string) (string, error) {
	cb, err := canonicalBytes(b)
	if err != nil {
		return "", err
	}
	return cryptoutil.Sign(privKeyHex, cb)
}

/*
verifySignature checks b.Signature against b.Validator over b's canonical
bytes.
*/
func verifySignature(b *Block) (bool, error) {
	cb, err := canonicalBytes(b)
	if err != nil {
		return false, err
	}
	return cryptoutil.Verify(b.Validator, cb, b.Signature)
}
