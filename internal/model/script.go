package model

import "encoding/json"

// ScriptOp is one line of a simulation script. Asset accepts "asset0",
// "asset1", "share" or a hex asset id.
type ScriptOp struct {
	Op          string `json:"op"`
	Identity    string `json:"identity,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	Amount0     uint64 `json:"amount0,omitempty"`
	Amount1     uint64 `json:"amount1,omitempty"`
	Shares      uint64 `json:"shares,omitempty"`
	MinOut      uint64 `json:"min_out,omitempty"`
	Reject      *bool  `json:"reject,omitempty"`
	Timestamp   uint64 `json:"timestamp,omitempty"`
	ExpectError string `json:"expect_error,omitempty"`
}

// OpResult reports the outcome of one script op with the pool state after it.
type OpResult struct {
	Line     int             `json:"line"`
	Op       string          `json:"op"`
	OK       bool            `json:"ok"`
	Error    string          `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Reserve0 uint64          `json:"reserve0"`
	Reserve1 uint64          `json:"reserve1"`
	LPSupply uint64          `json:"lp_supply"`
}
