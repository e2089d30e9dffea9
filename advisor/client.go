package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// VerdictBrokenRef is a broken reference as reported by the oracle, with
// its short free-text reason.
type VerdictBrokenRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"motivo"`
}

// Verdict is the oracle's fixed response schema. Every field must be
// present; a response missing any of them is malformed.
type Verdict struct {
	OKStructural      bool               `json:"okEstructural"`
	Islands           []string           `json:"islas"`
	BrokenRefs        []VerdictBrokenRef `json:"referenciasRotas"`
	InheritanceCycles [][]string         `json:"ciclosHerencia"`
	DesignScore       float64            `json:"scoreDiseno"`
	Suggestions       []string           `json:"sugerencias"`
	PriorityActions   []string           `json:"accionesPrioritarias"`
	Tags              []string           `json:"tags"`
	ProblemNodes      []string           `json:"nodosProblematicos"`
	ProblemEdges      []string           `json:"aristasProblematicas"`
	UsedLocalFindings bool               `json:"usoHallazgosLocales"`
	Limitations       []string           `json:"limitaciones"`
}

var verdictFields = []string{
	"okEstructural", "islas", "referenciasRotas", "ciclosHerencia",
	"scoreDiseno", "sugerencias", "accionesPrioritarias", "tags",
	"nodosProblematicos", "aristasProblematicas", "usoHallazgosLocales",
	"limitaciones",
}

// Report is the outcome of one advisory call. When the oracle could not
// be consulted or answered garbage, Verified is false, Failure carries
// the classified error, and the deterministic local checks still stand.
type Report struct {
	Verified bool
	Verdict  *Verdict
	Local    LocalChecks
	Failure  error
}

// Note renders the degraded outcome for display.
func (r *Report) Note() string {
	if r.Verified {
		return ""
	}
	if r.Failure != nil {
		return "could not verify: " + r.Failure.Error()
	}
	return "could not verify"
}

// request is the oracle's input envelope.
type request struct {
	Context struct {
		Action    string `json:"accion"`
		BoardID   string `json:"boardId"`
		Timestamp string `json:"timestamp"`
	} `json:"ui_context"`
	Summary Summary      `json:"resumen_json"`
	Local   *LocalChecks `json:"resultados_locales_json,omitempty"`
}

// Client talks to the advisory oracle.
type Client struct {
	endpoint     string
	apiKey       string
	includeLocal bool
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the structured logger. Defaults to slog.Default().
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the request-timestamp source.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Client from configuration. The API key is resolved
// from the environment variable the config names.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.ResolveAPIKey(),
		includeLocal: cfg.IncludeLocalChecks,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify runs the local checks and asks the oracle for a verdict. The
// returned report is never nil: oracle failures are classified, logged,
// and folded into a degraded report.
func (c *Client) Verify(ctx context.Context, boardID string, nodes []diagram.Node, rels []diagram.Relationship) *Report {
	sum := Summarize(nodes, rels)
	report := &Report{Local: RunLocalChecks(sum)}

	verdict, err := c.call(ctx, boardID, sum, report.Local)
	if err != nil {
		c.logger.Warn("advisory verification degraded", "board", boardID, "err", err)
		report.Failure = err
		return report
	}
	report.Verified = true
	report.Verdict = verdict
	return report
}

func (c *Client) call(ctx context.Context, boardID string, sum Summary, local LocalChecks) (*Verdict, error) {
	req := request{Summary: sum}
	req.Context.Action = "verify_diagram"
	req.Context.BoardID = boardID
	req.Context.Timestamp = c.now().UTC().Format(time.RFC3339)
	if c.includeLocal {
		req.Local = &local
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleUnavailable, c.endpoint, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleUnavailable, c.endpoint, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleUnavailable, c.endpoint, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleUnavailable, c.endpoint, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classflow.NewOracleError(classflow.ErrOracleUnavailable, c.endpoint,
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return parseVerdict(c.endpoint, payload)
}

// parseVerdict extracts and validates the verdict JSON. Oracles sometimes
// wrap the object in prose; only the outermost braces are trusted.
func parseVerdict(endpoint string, payload []byte) (*Verdict, error) {
	text := string(payload)
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first < 0 || last <= first {
		return nil, classflow.NewOracleError(classflow.ErrOracleMalformedResponse, endpoint, "response carries no JSON object", nil)
	}
	raw := []byte(text[first : last+1])

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleMalformedResponse, endpoint, "response is not valid JSON", err)
	}
	for _, name := range verdictFields {
		if _, ok := fields[name]; !ok {
			return nil, classflow.NewOracleError(classflow.ErrOracleMalformedResponse, endpoint,
				fmt.Sprintf("response is missing field %q", name), nil)
		}
	}

	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, classflow.NewOracleError(classflow.ErrOracleMalformedResponse, endpoint, "response does not match the schema", err)
	}
	return &v, nil
}
