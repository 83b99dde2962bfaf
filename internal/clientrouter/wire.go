package clientrouter

import "encoding/json"

func encodeCommand(cmd RemoteCommand) ([]byte, error) {
	return json.Marshal(cmd)
}

// DecodeResponse parses a Response frame received from an agent
// connection; callers feed the result to HandleCommandResult.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	err := json.Unmarshal(raw, &resp)
	return resp, err
}
