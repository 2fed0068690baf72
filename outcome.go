// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package chainsig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// StatusKind is the variant of an execution status.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusNotStarted
	StatusStarted
	StatusFailure
	StatusSuccessValue
	StatusSuccessReceiptID
)

// ExecutionStatus is the terminal status of a transaction or of one of its
// receipts. It decodes both the string variants ("Unknown", "NotStarted",
// "Started") and the object variants ({"SuccessValue": "<base64>"},
// {"SuccessReceiptId": "..."}, {"Failure": {...}}).
type ExecutionStatus struct {
	Kind             StatusKind
	SuccessValue     []byte
	SuccessReceiptID string
	Failure          json.RawMessage
}

// Success returns a status that finished with the given payload.
func Success(payload []byte) ExecutionStatus {
	return ExecutionStatus{Kind: StatusSuccessValue, SuccessValue: payload}
}

// IsSuccessValue reports whether the status carries a success payload.
func (e ExecutionStatus) IsSuccessValue() bool {
	return e.Kind == StatusSuccessValue
}

func (e *ExecutionStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NotStarted":
			*e = ExecutionStatus{Kind: StatusNotStarted}
		case "Started":
			*e = ExecutionStatus{Kind: StatusStarted}
		default:
			*e = ExecutionStatus{Kind: StatusUnknown}
		}
		return nil
	}

	var obj struct {
		// SuccessValue is base64 on the wire; []byte decodes it.
		SuccessValue     *[]byte         `json:"SuccessValue"`
		SuccessReceiptID *string         `json:"SuccessReceiptId"`
		Failure          json.RawMessage `json:"Failure"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("could not decode execution status: %w", err)
	}

	switch {
	case obj.SuccessValue != nil:
		*e = Success(*obj.SuccessValue)
	case obj.SuccessReceiptID != nil:
		*e = ExecutionStatus{Kind: StatusSuccessReceiptID, SuccessReceiptID: *obj.SuccessReceiptID}
	case obj.Failure != nil:
		*e = ExecutionStatus{Kind: StatusFailure, Failure: obj.Failure}
	default:
		*e = ExecutionStatus{Kind: StatusUnknown}
	}
	return nil
}

func (e ExecutionStatus) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case StatusNotStarted:
		return json.Marshal("NotStarted")
	case StatusStarted:
		return json.Marshal("Started")
	case StatusSuccessValue:
		return json.Marshal(map[string][]byte{"SuccessValue": e.SuccessValue})
	case StatusSuccessReceiptID:
		return json.Marshal(map[string]string{"SuccessReceiptId": e.SuccessReceiptID})
	case StatusFailure:
		failure := e.Failure
		if failure == nil {
			failure = json.RawMessage("{}")
		}
		return json.Marshal(map[string]json.RawMessage{"Failure": failure})
	default:
		return json.Marshal("Unknown")
	}
}

// ReceiptOutcome is one receipt of a final execution outcome.
type ReceiptOutcome struct {
	ID      string `json:"id"`
	Outcome struct {
		Status ExecutionStatus `json:"status"`
	} `json:"outcome"`
}

// NewReceipt returns a receipt with the given status.
func NewReceipt(id string, status ExecutionStatus) ReceiptOutcome {
	r := ReceiptOutcome{ID: id}
	r.Outcome.Status = status
	return r
}

// FinalExecutionOutcome is the execution result of a transaction.
type FinalExecutionOutcome struct {
	Status          ExecutionStatus  `json:"status"`
	ReceiptsOutcome []ReceiptOutcome `json:"receipts_outcome"`
}

// TxResponse is a transaction status query response. Outcome is nil while
// the transaction has not been executed.
type TxResponse struct {
	FinalExecutionStatus string
	Outcome              *FinalExecutionOutcome
}

func (r *TxResponse) UnmarshalJSON(data []byte) error {
	var probe struct {
		FinalExecutionStatus string           `json:"final_execution_status"`
		Status               *json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("could not decode transaction response: %w", err)
	}

	r.FinalExecutionStatus = probe.FinalExecutionStatus
	r.Outcome = nil
	if probe.Status == nil {
		return nil
	}

	var outcome FinalExecutionOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return fmt.Errorf("could not decode final execution outcome: %w", err)
	}
	r.Outcome = &outcome
	return nil
}

// SignatureComponents are the hex encoded parts of a signature returned by
// the signer: big_r is a compressed point, s a scalar.
type SignatureComponents struct {
	BigR string
	S    string
}

// Assemble builds the compact signature of the components.
func (c SignatureComponents) Assemble() (*CompactSignature, error) {
	return Assemble(c.BigR, c.S)
}

// signaturePayload is the JSON returned by the signer contract. Fields are
// pointers so absent keys can be told apart from empty strings.
type signaturePayload struct {
	BigR *struct {
		AffinePoint *string `json:"affine_point"`
	} `json:"big_r"`
	S *struct {
		Scalar *string `json:"scalar"`
	} `json:"s"`
}

func decodeComponents(payload []byte) (SignatureComponents, error) {
	if !utf8.Valid(payload) {
		return SignatureComponents{}, fmt.Errorf("%w: not valid UTF-8", ErrMalformedPayload)
	}

	var p signaturePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return SignatureComponents{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if p.BigR == nil || p.BigR.AffinePoint == nil {
		return SignatureComponents{}, &MissingFieldError{Field: "big_r.affine_point"}
	}
	if p.S == nil || p.S.Scalar == nil {
		return SignatureComponents{}, &MissingFieldError{Field: "s.scalar"}
	}
	return SignatureComponents{BigR: *p.BigR.AffinePoint, S: *p.S.Scalar}, nil
}

// Extractor pulls signature components out of execution outcomes.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor returns an Extractor logging to log. A nil log disables
// logging.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

var defaultExtractor = NewExtractor(nil)

// ExtractSingle reads the components from the final status of the outcome.
// Any problem is an error.
func (x *Extractor) ExtractSingle(outcome *FinalExecutionOutcome) (SignatureComponents, error) {
	if outcome == nil || !outcome.Status.IsSuccessValue() {
		return SignatureComponents{}, ErrNotSuccess
	}
	return decodeComponents(outcome.Status.SuccessValue)
}

// ExtractAll reads the components from every receipt that succeeded with a
// value. Receipts that do not decode or lack a field are skipped; only an
// empty result is an error.
func (x *Extractor) ExtractAll(outcome *FinalExecutionOutcome) ([]SignatureComponents, error) {
	if outcome == nil {
		return nil, ErrNoSignaturesFound
	}

	var sigs []SignatureComponents
	for i, receipt := range outcome.ReceiptsOutcome {
		status := receipt.Outcome.Status
		if !status.IsSuccessValue() {
			continue
		}
		c, err := decodeComponents(status.SuccessValue)
		if err != nil {
			x.log.Debug("skipping receipt without signature",
				zap.Int("index", i),
				zap.String("receipt_id", receipt.ID),
				zap.Error(err))
			continue
		}
		sigs = append(sigs, c)
	}

	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w in %d receipts", ErrNoSignaturesFound, len(outcome.ReceiptsOutcome))
	}
	return sigs, nil
}

// ExtractResponse is ExtractSingle for a query response, which may not carry
// an outcome yet.
func (x *Extractor) ExtractResponse(resp *TxResponse) (SignatureComponents, error) {
	if resp == nil || resp.Outcome == nil {
		return SignatureComponents{}, ErrNotSuccess
	}
	return x.ExtractSingle(resp.Outcome)
}

// ExtractSingle calls ExtractSingle on an Extractor without logging.
func ExtractSingle(outcome *FinalExecutionOutcome) (SignatureComponents, error) {
	return defaultExtractor.ExtractSingle(outcome)
}

// ExtractAll calls ExtractAll on an Extractor without logging.
func ExtractAll(outcome *FinalExecutionOutcome) ([]SignatureComponents, error) {
	return defaultExtractor.ExtractAll(outcome)
}

// AssembleAll assembles every set of components, stopping at the first
// invalid one.
func AssembleAll(components []SignatureComponents) ([]*CompactSignature, error) {
	sigs := make([]*CompactSignature, 0, len(components))
	for i, c := range components {
		sig, err := c.Assemble()
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}
