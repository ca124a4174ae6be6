package bongowire

import (
	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/record"
	"github.com/tuannm99/bongodb/internal/sql/executor"
)

// ExecuteRequest is a single SQL statement request.
type ExecuteRequest struct {
	SQL string `json:"sql"`
}

// ExecuteResponse is the wire envelope.
//
//	successful: 0 = OK, 1 = parse/invalid-statement, 2 = execution failed
//	error:      message when successful != 0, else null
//	data:       array of rows for SELECT, null otherwise
type ExecuteResponse struct {
	Successful int              `json:"successful"`
	Error      *string          `json:"error"`
	Data       [][]record.Value `json:"data"`
}

// okResponse renders a successful execution. Only queries carry data;
// an empty row set stays distinguishable from "no result" on the wire.
func okResponse(res *executor.Result) ExecuteResponse {
	out := ExecuteResponse{Successful: bongoerr.CodeOK}
	if res.IsQuery() {
		out.Data = res.Rows
	}
	return out
}

// errResponse renders err with its wire code.
func errResponse(err error) ExecuteResponse {
	msg := err.Error()
	return ExecuteResponse{
		Successful: bongoerr.WireCode(err),
		Error:      &msg,
	}
}
