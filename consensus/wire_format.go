package consensus

import (
	"fmt"

	"sealedtx/config"
	"sealedtx/pb"
)

// ProposalWireFormat 把提案编码成返回给共识引擎的响应
type ProposalWireFormat interface {
	Name() string
	Encode(p *Proposal) *pb.ResponsePrepareProposal
	// Decode 还原提案中的交易列表（去掉 REMOVED）
	Decode(resp *pb.ResponsePrepareProposal) [][]byte
}

// NewWireFormat 按配置名选择编码方式
func NewWireFormat(name string) (ProposalWireFormat, error) {
	switch name {
	case config.WireFormatTxs:
		return txsFormat{}, nil
	case config.WireFormatRecords:
		return recordsFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown proposal wire format %q", name)
	}
}

// txsFormat 纯交易列表
type txsFormat struct{}

func (txsFormat) Name() string { return config.WireFormatTxs }

func (txsFormat) Encode(p *Proposal) *pb.ResponsePrepareProposal {
	return &pb.ResponsePrepareProposal{Txs: p.Txs()}
}

func (txsFormat) Decode(resp *pb.ResponsePrepareProposal) [][]byte {
	return resp.Txs
}

// recordsFormat 每个候选都带上 action：
// mempool 候选按输入顺序标 UNMODIFIED 或 REMOVED，队列解密结果标 ADDED
type recordsFormat struct{}

func (recordsFormat) Name() string { return config.WireFormatRecords }

func (recordsFormat) Encode(p *Proposal) *pb.ResponsePrepareProposal {
	records := make([]*pb.TxRecord, 0, len(p.Mempool)+len(p.Queue))
	for _, c := range p.Mempool {
		action := pb.TxActionRemoved
		if c.Kept {
			action = pb.TxActionUnmodified
		}
		records = append(records, &pb.TxRecord{Action: action, Tx: c.Tx})
	}
	for _, raw := range p.Queue {
		records = append(records, &pb.TxRecord{Action: pb.TxActionAdded, Tx: raw})
	}
	return &pb.ResponsePrepareProposal{TxRecords: records}
}

func (recordsFormat) Decode(resp *pb.ResponsePrepareProposal) [][]byte {
	var out [][]byte
	for _, r := range resp.TxRecords {
		if r.Action == pb.TxActionUnmodified || r.Action == pb.TxActionAdded {
			out = append(out, r.Tx)
		}
	}
	return out
}
