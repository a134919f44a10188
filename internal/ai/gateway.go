package ai

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/metrics"
	"rfp-relay-go/internal/models"
)

const (
	dateLayout     = "2006-01-02"
	logPreviewSize = 500

	rfpSystem      = "You are a helpful assistant that extracts structured data from natural language. Always respond with valid JSON only."
	proposalSystem = "You are a helpful assistant that extracts structured data from proposal emails. Always respond with valid JSON only."
	compareSystem  = "You are a procurement analyst AI that provides objective proposal comparisons. Always respond with valid JSON only."
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var (
	prompts     = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))
	htmlPattern = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|td)[\s>/]`)
)

// Options tunes the gateway
type Options struct {
	ExtractModel string
	ScoreModel   string
	Timeout      time.Duration
	Now          func() time.Time
}

// Gateway runs the procurement prompts against a Completer
type Gateway struct {
	completer Completer
	opts      Options
	metrics   *metrics.Metrics
	markdown  *md.Converter
}

// NewGateway creates a gateway. m may be nil.
func NewGateway(c Completer, opts Options, m *metrics.Metrics) *Gateway {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Gateway{completer: c, opts: opts, metrics: m, markdown: converter}
}

type rfpResponse struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Budget           number  `json:"budget"`
	DeliveryDeadline *string `json:"delivery_deadline"`
	PaymentTerms     *string `json:"payment_terms"`
	WarrantyPeriod   *string `json:"warranty_period"`
	Requirements     struct {
		Items []struct {
			Name           string `json:"name"`
			Quantity       number `json:"quantity"`
			Specifications string `json:"specifications"`
		} `json:"items"`
	} `json:"requirements"`
}

// ExtractRFP structures a free-text procurement request
func (g *Gateway) ExtractRFP(ctx context.Context, input string) (*StructuredRFP, error) {
	prompt, err := render("rfp.tmpl", map[string]string{
		"Input": input,
		"Today": g.opts.Now().Format(dateLayout),
	})
	if err != nil {
		return nil, err
	}

	answer, err := g.complete(ctx, "extract_rfp", Completion{
		Model:       g.opts.ExtractModel,
		System:      rfpSystem,
		Prompt:      prompt,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to parse RFP with AI")
	}

	var resp rfpResponse
	if err := decodeJSON(answer, &resp); err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to parse RFP with AI")
	}
	if strings.TrimSpace(resp.Title) == "" {
		return nil, apperr.New(apperr.Extraction, "failed to parse RFP with AI: no title in response")
	}

	out := &StructuredRFP{
		Title:            strings.TrimSpace(resp.Title),
		Description:      strings.TrimSpace(resp.Description),
		Budget:           resp.Budget.ptr(),
		DeliveryDeadline: parseDate(resp.DeliveryDeadline),
		PaymentTerms:     deref(resp.PaymentTerms),
		WarrantyPeriod:   deref(resp.WarrantyPeriod),
		Requirements:     models.Requirements{Items: []models.RequirementItem{}},
	}
	for _, item := range resp.Requirements.Items {
		out.Requirements.Items = append(out.Requirements.Items, models.RequirementItem{
			Name:           item.Name,
			Quantity:       item.Quantity.or(0),
			Specifications: item.Specifications,
		})
	}
	return out, nil
}

type proposalResponse struct {
	TotalPrice   number  `json:"total_price"`
	DeliveryTime *string `json:"delivery_time"`
	PaymentTerms *string `json:"payment_terms"`
	Warranty     *string `json:"warranty"`
	ParsedData   struct {
		Items []struct {
			Name       string `json:"name"`
			Quantity   number `json:"quantity"`
			UnitPrice  number `json:"unit_price"`
			TotalPrice number `json:"total_price"`
		} `json:"items"`
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	} `json:"parsed_data"`
	Summary string `json:"ai_summary"`
}

// ExtractProposal structures a vendor reply against the RFP it answers.
// HTML bodies are converted to markdown first.
func (g *Gateway) ExtractProposal(ctx context.Context, subject, body string, rfp RFPContext) (*StructuredProposal, error) {
	rfpJSON, err := json.MarshalIndent(rfp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode rfp context: %w", err)
	}

	prompt, err := render("proposal.tmpl", map[string]string{
		"RFP":     string(rfpJSON),
		"Subject": subject,
		"Body":    g.plainBody(body),
	})
	if err != nil {
		return nil, err
	}

	answer, err := g.complete(ctx, "extract_proposal", Completion{
		Model:       g.opts.ExtractModel,
		System:      proposalSystem,
		Prompt:      prompt,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to parse proposal with AI")
	}

	var resp proposalResponse
	if err := decodeJSON(answer, &resp); err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to parse proposal with AI")
	}

	out := &StructuredProposal{
		TotalPrice:   resp.TotalPrice.ptr(),
		DeliveryTime: deref(resp.DeliveryTime),
		PaymentTerms: deref(resp.PaymentTerms),
		Warranty:     deref(resp.Warranty),
		Summary:      strings.TrimSpace(resp.Summary),
		ParsedData: models.ProposalDetails{
			Items:      []models.ProposalItem{},
			Strengths:  nonNil(resp.ParsedData.Strengths),
			Weaknesses: nonNil(resp.ParsedData.Weaknesses),
		},
	}
	for _, item := range resp.ParsedData.Items {
		out.ParsedData.Items = append(out.ParsedData.Items, models.ProposalItem{
			Name:       item.Name,
			Quantity:   item.Quantity.or(0),
			UnitPrice:  item.UnitPrice.or(0),
			TotalPrice: item.TotalPrice.or(0),
		})
	}
	return out, nil
}

// ScoreProposal rates a proposal from 0 to 100. It never fails: any error
// or unreadable answer scores 0.
func (g *Gateway) ScoreProposal(ctx context.Context, proposal *StructuredProposal, rfp RFPContext) float64 {
	rfpJSON, err := json.MarshalIndent(rfp, "", "  ")
	if err != nil {
		logrus.WithError(err).Warn("Failed to encode rfp context for scoring")
		return 0
	}
	proposalJSON, err := json.MarshalIndent(proposal, "", "  ")
	if err != nil {
		logrus.WithError(err).Warn("Failed to encode proposal for scoring")
		return 0
	}

	prompt, err := render("score.tmpl", map[string]string{
		"RFP":      string(rfpJSON),
		"Proposal": string(proposalJSON),
	})
	if err != nil {
		logrus.WithError(err).Warn("Failed to render scoring prompt")
		return 0
	}

	answer, err := g.complete(ctx, "score_proposal", Completion{
		Model:       g.scoreModel(),
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   10,
	})
	if err != nil {
		logrus.WithError(err).Warn("Proposal scoring failed, defaulting to 0")
		return 0
	}
	return parseScore(answer)
}

type recommendationResponse struct {
	BestPrice    *string `json:"best_price"`
	BestDelivery *string `json:"best_delivery"`
	BestOverall  *string `json:"best_overall"`
	Summary      string  `json:"summary"`
	Details      []struct {
		VendorID   string   `json:"vendor_id"`
		VendorName string   `json:"vendor_name"`
		Score      number   `json:"score"`
		Pros       []string `json:"pros"`
		Cons       []string `json:"cons"`
	} `json:"details"`
}

// CompareProposals asks the model for a recommendation across proposals
func (g *Gateway) CompareProposals(ctx context.Context, proposals []ProposalSummary, rfp RFPContext) (*Recommendation, error) {
	rfpJSON, err := json.MarshalIndent(rfp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode rfp context: %w", err)
	}
	proposalsJSON, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode proposals: %w", err)
	}

	prompt, err := render("compare.tmpl", map[string]string{
		"RFP":       string(rfpJSON),
		"Proposals": string(proposalsJSON),
	})
	if err != nil {
		return nil, err
	}

	answer, err := g.complete(ctx, "compare_proposals", Completion{
		Model:       g.opts.ExtractModel,
		System:      compareSystem,
		Prompt:      prompt,
		Temperature: 0.4,
		JSON:        true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to compare proposals with AI")
	}

	var resp recommendationResponse
	if err := decodeJSON(answer, &resp); err != nil {
		return nil, apperr.Wrap(apperr.Extraction, err, "failed to compare proposals with AI")
	}

	out := &Recommendation{
		BestPrice:    deref(resp.BestPrice),
		BestDelivery: deref(resp.BestDelivery),
		BestOverall:  deref(resp.BestOverall),
		Summary:      strings.TrimSpace(resp.Summary),
		Details:      make([]VendorAssessment, 0, len(resp.Details)),
	}
	for _, d := range resp.Details {
		out.Details = append(out.Details, VendorAssessment{
			VendorID:   d.VendorID,
			VendorName: d.VendorName,
			Score:      d.Score.or(0),
			Pros:       nonNil(d.Pros),
			Cons:       nonNil(d.Cons),
		})
	}
	return out, nil
}

func (g *Gateway) complete(ctx context.Context, op string, req Completion) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	log := logrus.WithFields(logrus.Fields{"op": op, "model": req.Model})
	log.WithField("prompt", truncateForLog(req.Prompt, logPreviewSize)).Debug("Sending prompt")

	start := time.Now()
	answer, err := g.completer.Complete(ctx, req)
	g.metrics.ObserveInference(op, time.Since(start), err)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyResponse
	}

	log.WithField("response", truncateForLog(answer, logPreviewSize)).Debug("Received model response")
	return answer, nil
}

func (g *Gateway) scoreModel() string {
	if g.opts.ScoreModel != "" {
		return g.opts.ScoreModel
	}
	return g.opts.ExtractModel
}

func (g *Gateway) plainBody(body string) string {
	if !htmlPattern.MatchString(body) {
		return body
	}
	converted, err := g.markdown.ConvertString(body)
	if err != nil {
		logrus.WithError(err).Debug("HTML to markdown conversion failed, using raw body")
		return body
	}
	return converted
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
