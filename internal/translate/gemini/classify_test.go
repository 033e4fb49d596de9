package gemini

import (
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/askmongo/askmongo/internal/translate"
)

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "temp net err" }
func (tempNetErr) Timeout() bool   { return false }
func (tempNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_500", in: genai.APIError{Code: 500}, wantTransient: true},
		{name: "api_503", in: genai.APIError{Code: 503}, wantTransient: true},
		{name: "api_400", in: genai.APIError{Code: 400}, wantTransient: false},
		{name: "api_401", in: genai.APIError{Code: 401}, wantTransient: false},
		{name: "net_temporary", in: tempNetErr{}, wantTransient: true},
		{name: "wrapped_api_429", in: errors.New(genai.APIError{Code: 429}.Error()), wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			var te *translate.TransientError
			isTransient := errors.As(got, &te)
			if isTransient != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", isTransient, tt.wantTransient, got, got)
			}
		})
	}
}

func TestClassifyErr_PermanentBecomesTranslationError(t *testing.T) {
	got := classifyErr(genai.APIError{Code: 401})

	var terr *translate.TranslationError
	if !errors.As(got, &terr) {
		t.Fatalf("expected TranslationError, got %T %v", got, got)
	}
}
