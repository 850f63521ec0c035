// Package inaturalist queries the iNaturalist observations API and sorts the
// photographed observations into flora and fauna.
package inaturalist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/metrics"

	"go.uber.org/zap"
)

const (
	msgUpstream    = "No se pudo obtener información desde iNaturalist por ahora."
	msgUnreachable = "Error al conectar con el servicio de biodiversidad."
	noCommonName   = "Sin nombre común"
)

var faunaGroups = map[string]bool{
	"animalia":       true,
	"aves":           true,
	"mammalia":       true,
	"reptilia":       true,
	"amphibia":       true,
	"actinopterygii": true,
	"arachnida":      true,
	"insecta":        true,
}

// Species is one observation prepared for display.
type Species struct {
	CommonName     string `json:"nombre_comun"`
	ScientificName string `json:"nombre_cientifico"`
	Name           string `json:"nombre"`
	Image          string `json:"imagen,omitempty"`
	Group          string `json:"tipo"`
	Locations      string `json:"ubicaciones"`
}

// Result is what the flora and fauna page renders. Error holds a message for
// the visitor; it is never a Go error.
type Result struct {
	Query        string    `json:"ubicacion"`
	Page         int       `json:"page"`
	Flora        []Species `json:"flora_results"`
	Fauna        []Species `json:"fauna_results"`
	Error        string    `json:"error_message,omitempty"`
	HasMoreFlora bool      `json:"hay_mas_flora"`
	HasMoreFauna bool      `json:"hay_mas_fauna"`
}

type Client struct {
	baseURL string
	placeID int
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.INaturalistConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		placeID: cfg.PlaceID,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type observationsResponse struct {
	Results []struct {
		Taxon *struct {
			Name                string `json:"name"`
			PreferredCommonName string `json:"preferred_common_name"`
			IconicTaxonName     string `json:"iconic_taxon_name"`
			Names               []struct {
				Name    string `json:"name"`
				Lexicon string `json:"lexicon"`
			} `json:"names"`
		} `json:"taxon"`
		Photos []struct {
			URL       string `json:"url"`
			MediumURL string `json:"medium_url"`
			SquareURL string `json:"square_url"`
		} `json:"photos"`
	} `json:"results"`
}

// Search returns one page of observations in the configured place matching
// query. An empty query yields empty buckets without calling the API.
func (c *Client) Search(ctx context.Context, query string, page int) *Result {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}
	res := &Result{Query: query, Page: page, Flora: []Species{}, Fauna: []Species{}}
	if query == "" {
		return res
	}

	start := time.Now()
	defer func() { metrics.ObservationLookupDuration.Observe(time.Since(start).Seconds()) }()

	body, err := c.fetch(ctx, query, page)
	if err != nil {
		var se statusError
		if errors.As(err, &se) {
			res.Error = msgUpstream
			metrics.ObservationLookupsTotal.WithLabelValues("upstream_error").Inc()
		} else {
			res.Error = msgUnreachable
			metrics.ObservationLookupsTotal.WithLabelValues("unreachable").Inc()
		}
		c.log.Warn("iNaturalist lookup failed", zap.String("query", query), zap.Error(err))
		return res
	}

	for _, obs := range body.Results {
		if obs.Taxon == nil {
			continue
		}
		t := obs.Taxon

		common := t.PreferredCommonName
		if common == "" {
			for _, n := range t.Names {
				if n.Lexicon == "Spanish" {
					common = n.Name
					break
				}
			}
		}

		sp := Species{
			CommonName:     common,
			ScientificName: t.Name,
			Name:           common,
			Locations:      "Chile",
		}
		if sp.CommonName == "" {
			sp.CommonName = noCommonName
			sp.Name = t.Name
		}
		if len(obs.Photos) > 0 {
			p := obs.Photos[0]
			sp.Image = firstNonEmpty(p.URL, p.MediumURL, p.SquareURL)
		}

		iconic := strings.ToLower(t.IconicTaxonName)
		if iconic != "" {
			sp.Group = strings.ToUpper(iconic[:1]) + iconic[1:]
		}
		switch {
		case iconic == "plantae":
			res.Flora = append(res.Flora, sp)
		case faunaGroups[iconic]:
			res.Fauna = append(res.Fauna, sp)
		}
	}

	res.HasMoreFlora = len(res.Flora) == config.ObservationsPerPage
	res.HasMoreFauna = len(res.Fauna) == config.ObservationsPerPage
	metrics.ObservationLookupsTotal.WithLabelValues("ok").Inc()
	return res
}

type statusError int

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", int(e))
}

func (c *Client) fetch(ctx context.Context, query string, page int) (*observationsResponse, error) {
	place := strconv.Itoa(c.placeID)
	params := url.Values{}
	params.Set("place_id", place)
	params.Set("preferred_place_id", place)
	params.Set("per_page", strconv.Itoa(config.ObservationsPerPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("order_by", "created_at")
	params.Set("order", "desc")
	params.Set("locale", "es")
	params.Set("verifiable", "true")
	params.Set("photos", "true")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var out observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return &out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
