package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// TxAction tells the consensus engine what the proposer did with a tx.
type TxAction int32

const (
	TxActionUnknown    TxAction = 0
	TxActionUnmodified TxAction = 1
	TxActionAdded      TxAction = 2
	TxActionRemoved    TxAction = 3
)

func (a TxAction) String() string {
	switch a {
	case TxActionUnmodified:
		return "UNMODIFIED"
	case TxActionAdded:
		return "ADDED"
	case TxActionRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// TxRecord is a tx tagged with the action taken on it.
type TxRecord struct {
	Action TxAction
	Tx     []byte
}

func (m *TxRecord) Marshal() []byte {
	var b []byte
	if m.Action != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Action)))
	}
	if len(m.Tx) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Tx)
	}
	return b
}

func (m *TxRecord) Unmarshal(b []byte) error {
	*m = TxRecord{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				m.Action = TxAction(int32(v))
			}
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.Tx = append([]byte(nil), v...)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// RequestPrepareProposal carries the mempool snapshot offered to the proposer.
type RequestPrepareProposal struct {
	MaxTxBytes int64
	Txs        [][]byte
	Height     int64
}

func (m *RequestPrepareProposal) Marshal() []byte {
	var b []byte
	if m.MaxTxBytes != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.MaxTxBytes))
	}
	for _, tx := range m.Txs {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, tx)
	}
	if m.Height != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Height))
	}
	return b
}

func (m *RequestPrepareProposal) Unmarshal(b []byte) error {
	*m = RequestPrepareProposal{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				m.MaxTxBytes = int64(v)
			}
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.Txs = append(m.Txs, append([]byte{}, v...))
			}
			return n, nil
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				m.Height = int64(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// ResponsePrepareProposal is the proposer's answer. Exactly one of Txs and
// TxRecords is populated, depending on the configured wire format.
type ResponsePrepareProposal struct {
	Txs       [][]byte
	TxRecords []*TxRecord
}

func (m *ResponsePrepareProposal) Marshal() []byte {
	var b []byte
	for _, tx := range m.Txs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, tx)
	}
	for _, rec := range m.TxRecords {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, rec.Marshal())
	}
	return b
}

func (m *ResponsePrepareProposal) Unmarshal(b []byte) error {
	*m = ResponsePrepareProposal{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.Txs = append(m.Txs, append([]byte{}, v...))
			}
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			rec := &TxRecord{}
			if err := rec.Unmarshal(v); err != nil {
				return 0, fmt.Errorf("tx_records: %w", err)
			}
			m.TxRecords = append(m.TxRecords, rec)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}
