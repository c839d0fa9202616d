package rpc

import (
	"fmt"
	"net/http"
	"testing"

	"gigescrow/native/gig"
)

func TestClassifyErrorWrapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{fmt.Errorf("call deposit: %w", gig.ErrVaultAccount), http.StatusForbidden, codeGigVaultAccount},
		{fmt.Errorf("call withdraw: %w", gig.ErrNotAuthorized), http.StatusForbidden, codeGigNotAuthorized},
		{fmt.Errorf("call withdraw: %w", gig.ErrDivisionByZero), http.StatusConflict, codeGigDivisionByZero},
		{fmt.Errorf("disk full"), http.StatusInternalServerError, codeServerError},
	}
	for _, tc := range cases {
		status, code := classifyError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: got (%d, %d), want (%d, %d)", tc.err, status, code, tc.status, tc.code)
		}
	}
}
