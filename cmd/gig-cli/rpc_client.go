package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}
	rpcCall    = callRPC
)

func callRPC(method string, params interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, opts.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if opts.token == "" {
			return nil, nil, fmt.Errorf("%s requires %s to be set", method, rpcTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", opts.endpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

// invoke performs the call and prints the outcome, returning the exit code.
func invoke(method string, params interface{}, requireAuth bool, stdout, stderr io.Writer) int {
	result, rpcErr, err := rpcCall(method, params, requireAuth)
	if err != nil {
		fmt.Fprintf(stderr, "RPC call failed: %v\n", err)
		return 1
	}
	if rpcErr != nil {
		fmt.Fprintf(stderr, "RPC error %d: %s\n", rpcErr.Code, rpcErr.Message)
		return 1
	}
	if err := writeResult(stdout, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func writeResult(w io.Writer, result json.RawMessage) error {
	if len(bytes.TrimSpace(result)) == 0 {
		result = json.RawMessage("null")
	}
	if opts.output == outputYAML {
		var decoded interface{}
		if err := json.Unmarshal(result, &decoded); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		out, err := yaml.Marshal(decoded)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(result)
	}
	if !strings.HasSuffix(pretty.String(), "\n") {
		pretty.WriteByte('\n')
	}
	_, err := w.Write(pretty.Bytes())
	return err
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}
