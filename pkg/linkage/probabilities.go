package linkage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Band maps a similarity range onto an (m, u) pair: any similarity at or
// above MinSimilarity (and below the next band's floor) selects this band's
// probabilities.
type Band struct {
	MinSimilarity float64 `json:"min_similarity"`
	M             float64 `json:"m"`
	U             float64 `json:"u"`
}

// ProbabilityTable holds per-field banded (m, u) estimates. It is a tunable
// model input supplied at construction; fields without an explicit entry fall
// back to the default bands.
type ProbabilityTable struct {
	fields       map[string][]Band
	defaultBands []Band
}

// NewProbabilityTable builds a table from per-field bands plus a fallback
// band set. Both m and u must be in (0, 1] for every band; violations are
// the one configuration error that fails hard.
func NewProbabilityTable(fields map[string][]Band, defaultBands []Band) (*ProbabilityTable, error) {
	if len(defaultBands) == 0 {
		return nil, fmt.Errorf("probability table requires at least one default band")
	}

	table := &ProbabilityTable{
		fields:       make(map[string][]Band, len(fields)),
		defaultBands: sortBands(defaultBands),
	}
	for _, band := range table.defaultBands {
		if err := validateBand("default", band); err != nil {
			return nil, err
		}
	}

	for field, bands := range fields {
		if len(bands) == 0 {
			return nil, fmt.Errorf("field %q has no probability bands", field)
		}
		for _, band := range bands {
			if err := validateBand(field, band); err != nil {
				return nil, err
			}
		}
		table.fields[field] = sortBands(bands)
	}

	return table, nil
}

func validateBand(field string, band Band) error {
	if band.M <= 0 || band.M > 1 {
		return fmt.Errorf("field %q: m probability must be in (0, 1], got %f", field, band.M)
	}
	if band.U <= 0 || band.U > 1 {
		return fmt.Errorf("field %q: u probability must be in (0, 1], got %f", field, band.U)
	}
	return nil
}

func sortBands(bands []Band) []Band {
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinSimilarity > sorted[j].MinSimilarity
	})
	return sorted
}

// ParseTable decodes a JSON document of the form
// {"fields": {"email": [{"min_similarity": 0.95, "m": 0.97, "u": 0.001}]},
// "default": [...]} into a validated ProbabilityTable. An empty document
// yields the default table.
func ParseTable(data []byte) (*ProbabilityTable, error) {
	if len(data) == 0 {
		return DefaultProbabilityTable(), nil
	}

	var doc struct {
		Fields  map[string][]Band `json:"fields"`
		Default []Band            `json:"default"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse probability table: %w", err)
	}
	if doc.Default == nil {
		doc.Default = defaultBands()
	}

	return NewProbabilityTable(doc.Fields, doc.Default)
}

// Lookup selects the (m, u) pair for a field at a given similarity. The
// highest band whose floor the similarity meets wins; similarities below
// every floor take the lowest band.
func (t *ProbabilityTable) Lookup(field string, similarity float64) models.FieldProbability {
	bands, ok := t.fields[field]
	if !ok {
		bands = t.defaultBands
	}

	for _, band := range bands {
		if similarity >= band.MinSimilarity {
			return models.FieldProbability{M: band.M, U: band.U}
		}
	}

	last := bands[len(bands)-1]
	return models.FieldProbability{M: last.M, U: last.U}
}

func defaultBands() []Band {
	return []Band{
		{MinSimilarity: 0.95, M: 0.90, U: 0.05},
		{MinSimilarity: 0.80, M: 0.70, U: 0.15},
		{MinSimilarity: 0.60, M: 0.45, U: 0.30},
		{MinSimilarity: 0.00, M: 0.10, U: 0.70},
	}
}

// DefaultProbabilityTable returns hand-tuned starting estimates: exact
// agreement on a unique identifier is strong evidence (low u), while name or
// department agreement is common among non-matches.
func DefaultProbabilityTable() *ProbabilityTable {
	identifier := []Band{
		{MinSimilarity: 0.95, M: 0.97, U: 0.001},
		{MinSimilarity: 0.80, M: 0.60, U: 0.05},
		{MinSimilarity: 0.60, M: 0.30, U: 0.20},
		{MinSimilarity: 0.00, M: 0.15, U: 0.55},
	}
	name := []Band{
		{MinSimilarity: 0.95, M: 0.90, U: 0.02},
		{MinSimilarity: 0.80, M: 0.75, U: 0.10},
		{MinSimilarity: 0.60, M: 0.50, U: 0.30},
		{MinSimilarity: 0.00, M: 0.10, U: 0.70},
	}
	department := []Band{
		{MinSimilarity: 0.95, M: 0.85, U: 0.25},
		{MinSimilarity: 0.00, M: 0.20, U: 0.70},
	}
	face := []Band{
		{MinSimilarity: 0.95, M: 0.95, U: 0.005},
		{MinSimilarity: 0.80, M: 0.70, U: 0.05},
		{MinSimilarity: 0.00, M: 0.05, U: 0.60},
	}

	table, err := NewProbabilityTable(map[string][]Band{
		"name":           name,
		"email":          identifier,
		"phone":          identifier,
		"student_id":     identifier,
		"card_id":        identifier,
		"device_hash":    identifier,
		"department":     department,
		"face_embedding": face,
	}, defaultBands())
	if err != nil {
		// static values above are valid; reaching here is a programming error
		panic(err)
	}
	return table
}
