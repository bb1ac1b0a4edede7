package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError_Unwrap(t *testing.T) {
	tests := []struct {
		name string
		err  *RemoteError
		is   []error
		not  []error
	}{
		{"transport", &RemoteError{Op: "fetch words", Err: errors.New("dial")}, []error{ErrTransient}, []error{ErrRemoteValidation}},
		{"5xx", &RemoteError{Status: 502}, []error{ErrTransient}, nil},
		{"undecodable 2xx", &RemoteError{Status: 200, Message: "Failed to fetch words: invalid response body"}, []error{ErrTransient}, []error{ErrRemoteValidation, ErrSubscriptionRequired}},
		{"401", &RemoteError{Status: 401, Message: "upgrade"}, []error{ErrUnauthenticated}, []error{ErrSubscriptionRequired}},
		{"404", &RemoteError{Status: 404}, []error{ErrNotFound, ErrRemoteValidation}, nil},
		{"429", &RemoteError{Status: 429}, []error{ErrRateLimited}, []error{ErrRemoteValidation}},
		{"code", &RemoteError{Status: 403, Code: CodeSubscriptionRequired}, []error{ErrSubscriptionRequired, ErrRemoteValidation}, nil},
		{"other code wins over phrase", &RemoteError{Status: 403, Code: "forbidden", Message: "upgrade"}, []error{ErrRemoteValidation}, []error{ErrSubscriptionRequired}},
		{"phrase", &RemoteError{Status: 402, Message: "Monthly limit reached"}, []error{ErrSubscriptionRequired}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("ctx: %w", tt.err)
			for _, s := range tt.is {
				assert.ErrorIs(t, wrapped, s)
			}
			for _, s := range tt.not {
				assert.NotErrorIs(t, wrapped, s)
			}
		})
	}
}

func TestRemoteError_Error(t *testing.T) {
	assert.Equal(t, "boom", (&RemoteError{Message: "boom"}).Error())
	assert.Equal(t, "fetch words: dial", (&RemoteError{Op: "fetch words", Err: errors.New("dial")}).Error())
	assert.Equal(t, "delete word: status 418", (&RemoteError{Op: "delete word", Status: http.StatusTeapot}).Error())
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Empty(t, UserMessage(&RemoteError{Status: 403, Code: CodeSubscriptionRequired, Message: "Upgrade"}))
	assert.Equal(t, "bad folder", UserMessage(&RemoteError{Status: 400, Message: "bad folder"}))
}
