package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/pkg/capture"
)

var (
	// ErrNoCandidates means the Find step returned nothing for the text.
	ErrNoCandidates = eris.New("pipeline: capture returned no candidates")
	// ErrMissingID means the best Find candidate carried no retrievable id.
	ErrMissingID = eris.New("pipeline: capture candidate missing id")
	// ErrRetrieveEmpty means Retrieve returned no expanded records.
	ErrRetrieveEmpty = eris.New("pipeline: capture retrieve returned nothing")
)

// CaptureAdapter resolves free text through the two-step Find→Retrieve
// capture API.
type CaptureAdapter struct {
	client *capture.Client
}

// NewCaptureAdapter wires the adapter to a capture client.
func NewCaptureAdapter(client *capture.Client) *CaptureAdapter {
	return &CaptureAdapter{client: client}
}

// Name implements Adapter.
func (a *CaptureAdapter) Name() model.Pipeline { return model.PipelineCapture }

// Resolve finds the best candidate for the raw text, retrieves its full
// components, and maps them onto the canonical schema. Provider line keys
// vary by country; Line3..Line5 fold into line2 so nothing is lost.
func (a *CaptureAdapter) Resolve(ctx context.Context, req Request) (map[string]any, error) {
	if a.client == nil {
		return nil, eris.New("pipeline: capture client not configured")
	}

	raw := strings.TrimSpace(req.RawAddress)
	if raw == "" {
		return nil, eris.New("pipeline: capture needs a raw address")
	}

	found, err := a.client.Find(ctx, raw, 5, "")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: capture find")
	}
	if len(found) == 0 {
		return nil, ErrNoCandidates
	}

	best := found[0]
	if strings.TrimSpace(best.ID) == "" {
		return nil, ErrMissingID
	}

	items, err := a.client.Retrieve(ctx, best.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: capture retrieve")
	}
	if len(items) == 0 {
		return nil, ErrRetrieveEmpty
	}
	r := items[0]

	cc := strings.ToUpper(r.Str("CountryIso2", "CountryISO2", "Country"))
	if cc == "" {
		cc = strings.ToUpper(strings.TrimSpace(req.CountryCode))
	}

	line1 := r.Str("Line1")
	line2 := r.Str("Line2")
	if line2 == "" {
		var extras []string
		for _, k := range []string{"Line3", "Line4", "Line5"} {
			if v := r.Str(k); v != "" {
				extras = append(extras, v)
			}
		}
		line2 = strings.Join(extras, ", ")
	}

	city := r.Str("City", "Locality")
	postcode := r.Str("PostalCode", "Postcode")

	// The provider exposes no [0..1] score; presence of the core fields is
	// treated as a strong match.
	conf := 0.6
	if line1 != "" || city != "" || postcode != "" {
		conf = 0.9
	}

	return map[string]any{
		"country_code":  cc,
		"address_line1": line1,
		"address_line2": line2,
		"postcode":      postcode,
		"city":          city,
		"state_region":  r.Str("Province", "State", "AdministrativeArea"),
		"company":       r.Str("Company"),
		"raw_address":   raw,
		"confidence":    conf,
	}, nil
}
