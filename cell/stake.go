package cell

import (
	"crypto/ed25519"

	"github.com/zfxlabs/subzero/codec"
	"github.com/zfxlabs/subzero/hash"
)

// StakeState is the Kind-specific data carried by a Stake output: which
// validator the capacity is staked to, and the window during which the
// stake is active.
type StakeState struct {
	NodeID    hash.NodeID
	StartTime uint64
	EndTime   uint64
}

// StakeOutput locks capacity to stake, owned by pkh, on behalf of nodeID for
// [startTime, endTime).
func StakeOutput(nodeID hash.NodeID, pkh PublicKeyHash, capacity Capacity, startTime, endTime uint64) (Output, error) {
	data, err := codec.Marshal(StakeState{NodeID: nodeID, StartTime: startTime, EndTime: endTime})
	if err != nil {
		return Output{}, err
	}
	return Output{Capacity: capacity, Kind: Stake, Data: data, Lock: pkh}, nil
}

// StakeOperation locks capacity out of cell in favour of a validator nodeID.
type StakeOperation struct {
	cell      Cell
	nodeID    hash.NodeID
	address   PublicKeyHash
	capacity  Capacity
	startTime uint64
	endTime   uint64
}

// NewStakeOperation builds a stake operation spending capacity out of cell
// on behalf of nodeID, locked to address for [startTime, endTime).
func NewStakeOperation(c Cell, nodeID hash.NodeID, address PublicKeyHash, capacity Capacity, startTime, endTime uint64) StakeOperation {
	return StakeOperation{cell: c, nodeID: nodeID, address: address, capacity: capacity, startTime: startTime, endTime: endTime}
}

// Stake consumes the owner's outputs of cell and produces the stake cell,
// rejecting windows shorter than minDuration.
func (op StakeOperation) Stake(priv ed25519.PrivateKey, minDuration uint64) (Cell, error) {
	if op.startTime+minDuration > op.endTime {
		return Cell{}, ErrInvalidStake
	}
	result, err := ConsumeFromCell(op.cell, op.capacity, priv)
	if err != nil {
		return Cell{}, err
	}

	mainOutput, err := StakeOutput(op.nodeID, op.address, result.Consumed, op.startTime, op.endTime)
	if err != nil {
		return Cell{}, err
	}
	outputs := []Output{mainOutput}
	if result.Residue > Fee {
		outputs = append(outputs, TransferOutput(op.address, result.Residue-Fee))
	}
	return NewCell(result.Inputs, outputs), nil
}
