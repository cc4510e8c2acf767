package infosimples

import (
	"encoding/json"
	"net/http"
	"strings"

	"perdecomp/cmd/internal/domain/perdcomp"
)

const (
	CodeOK = 200
	// CodeNoResults is the provider's "query ran, nothing found" code.
	CodeNoResults = 612
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeBusinessError
	OutcomeTransientError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeBusinessError:
		return "business_error"
	case OutcomeTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

type apiResponse struct {
	Code        *int   `json:"code"`
	CodeMessage string `json:"code_message"`
	Message     string `json:"message"`
	Errors      []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Header struct {
		RequestedAt string `json:"requested_at"`
	} `json:"header"`
	Data []struct {
		Perdcomp []perdcomp.Entry `json:"perdcomp"`
	} `json:"data"`
	MappedCount  *int     `json:"mapped_count"`
	SiteReceipts []string `json:"site_receipts"`
}

func (r *apiResponse) providerMessage() *string {
	var msg string
	switch {
	case strings.TrimSpace(r.CodeMessage) != "":
		msg = r.CodeMessage
	case strings.TrimSpace(r.Message) != "":
		msg = r.Message
	case len(r.Errors) > 0 && strings.TrimSpace(r.Errors[0].Message) != "":
		msg = r.Errors[0].Message
	default:
		return nil
	}
	return &msg
}

// Result is a successful provider answer, possibly with zero filings.
type Result struct {
	Code        int
	RequestedAt string
	Entries     []perdcomp.Entry
	MappedCount int
	SiteReceipt string
	Raw         json.RawMessage
}

// Decoded is the provider answer classified into exactly one Outcome.
// Result is set for Success and Empty, Err for the error outcomes.
type Decoded struct {
	Outcome Outcome
	Result  *Result
	Err     *ProviderError
}

// Decode classifies a raw provider response.
func Decode(status int, text string, body []byte) Decoded {
	var r apiResponse
	jsonErr := json.Unmarshal(body, &r)

	ok := status >= 200 && status < 300
	if !ok || jsonErr != nil || (r.Code != nil && *r.Code != CodeOK && *r.Code != CodeNoResults) {
		return classifyError(status, text, r, jsonErr)
	}

	res := &Result{
		Code:        CodeOK,
		RequestedAt: r.Header.RequestedAt,
		Entries:     []perdcomp.Entry{},
		Raw:         json.RawMessage(body),
	}
	if len(r.SiteReceipts) > 0 {
		res.SiteReceipt = r.SiteReceipts[0]
	}

	if r.Code != nil && *r.Code == CodeNoResults {
		res.Code = CodeNoResults
		return Decoded{Outcome: OutcomeEmpty, Result: res}
	}

	if len(r.Data) > 0 && r.Data[0].Perdcomp != nil {
		res.Entries = r.Data[0].Perdcomp
	}
	res.MappedCount = len(res.Entries)
	if r.MappedCount != nil {
		res.MappedCount = *r.MappedCount
	}
	if len(res.Entries) == 0 {
		return Decoded{Outcome: OutcomeEmpty, Result: res}
	}
	return Decoded{Outcome: OutcomeSuccess, Result: res}
}

func classifyError(status int, text string, r apiResponse, jsonErr error) Decoded {
	pe := &ProviderError{
		Status:       status,
		StatusText:   text,
		ProviderCode: r.Code,
	}
	if pe.Status == 0 {
		pe.Status = http.StatusBadGateway
	}
	if pe.StatusText == "" {
		pe.StatusText = http.StatusText(pe.Status)
	}

	if jsonErr == nil {
		pe.ProviderMessage = r.providerMessage()
	} else if status >= 200 && status < 300 {
		// A 2xx with an unreadable body is a broken gateway answer.
		msg := "invalid provider response: " + jsonErr.Error()
		pe.Status = http.StatusBadGateway
		pe.StatusText = http.StatusText(http.StatusBadGateway)
		pe.ProviderMessage = &msg
	}

	if pe.Transient() {
		return Decoded{Outcome: OutcomeTransientError, Err: pe}
	}
	return Decoded{Outcome: OutcomeBusinessError, Err: pe}
}
