package blocking

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func strPtr(s string) *string {
	return &s
}

func TestParseStrategies(t *testing.T) {
	t.Run("known names", func(t *testing.T) {
		strategies := ParseStrategies([]string{"phonetic", "email_prefix", "department"}, testLogger())
		assert.Equal(t, []Strategy{StrategyPhonetic, StrategyEmailPrefix, StrategyDepartment}, strategies)
	})

	t.Run("unknown names are skipped", func(t *testing.T) {
		strategies := ParseStrategies([]string{"phonetic", "zip_code", "card_prefix"}, testLogger())
		assert.Equal(t, []Strategy{StrategyPhonetic, StrategyCardPrefix}, strategies)
	})

	t.Run("case and whitespace tolerant", func(t *testing.T) {
		strategies := ParseStrategies([]string{" Phonetic ", "NAME_TOKEN"}, testLogger())
		assert.Equal(t, []Strategy{StrategyPhonetic, StrategyNameToken}, strategies)
	})
}

func TestStrategyKeys(t *testing.T) {
	t.Run("phonetic emits soundex and metaphone per token", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Name: strPtr("Jane Doe")}
		keys := StrategyPhonetic.Keys(record)
		assert.Contains(t, keys, "sx_J500")
		assert.Contains(t, keys, "sx_D000")
		assert.GreaterOrEqual(t, len(keys), 4)
	})

	t.Run("phonetic skips short tokens", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Name: strPtr("J Doe")}
		keys := StrategyPhonetic.Keys(record)
		assert.NotContains(t, keys, "sx_"+"J000")
	})

	t.Run("phonetic without name yields nothing", func(t *testing.T) {
		assert.Empty(t, StrategyPhonetic.Keys(&models.Record{ID: "obs-1"}))
	})

	t.Run("email prefix lengths", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Email: strPtr("Jane.Doe@example.edu")}
		keys := StrategyEmailPrefix.Keys(record)
		assert.Equal(t, []string{"jan", "jane", "jane."}, keys)
	})

	t.Run("short email local part contributes fewer keys", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Email: strPtr("jd@example.edu")}
		assert.Empty(t, StrategyEmailPrefix.Keys(record))

		record.Email = strPtr("jdo@example.edu")
		assert.Equal(t, []string{"jdo"}, StrategyEmailPrefix.Keys(record))
	})

	t.Run("id prefix", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", StudentID: strPtr("S1234567")}
		assert.Equal(t, []string{"s123", "s12345"}, StrategyIDPrefix.Keys(record))
	})

	t.Run("phone suffix uses digits only", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Phone: strPtr("+1 (555) 123-4567")}
		assert.Equal(t, []string{"4567", "234567"}, StrategyPhoneSuffix.Keys(record))
	})

	t.Run("short phone yields only available suffixes", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Phone: strPtr("12345")}
		assert.Equal(t, []string{"2345"}, StrategyPhoneSuffix.Keys(record))
	})

	t.Run("name token emits tokens prefixes and first-last", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Name: strPtr("Jane Marie Doe")}
		keys := StrategyNameToken.Keys(record)
		assert.Contains(t, keys, "tok_jane")
		assert.Contains(t, keys, "tok_marie")
		assert.Contains(t, keys, "tok_doe")
		assert.Contains(t, keys, "pre_jan")
		assert.Contains(t, keys, "pre_mar")
		assert.Contains(t, keys, "fl_jane_doe")
	})

	t.Run("single token name has no first-last key", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Name: strPtr("Jane")}
		keys := StrategyNameToken.Keys(record)
		assert.NotContains(t, keys, "fl_jane_jane")
	})

	t.Run("department is normalized", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Department: strPtr("Computer  Science")}
		assert.Equal(t, []string{"computer_science"}, StrategyDepartment.Keys(record))
	})

	t.Run("card prefix", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", CardID: strPtr("CARD-998877")}
		assert.Equal(t, []string{"card", "card-9"}, StrategyCardPrefix.Keys(record))
	})

	t.Run("keys are deterministic", func(t *testing.T) {
		record := &models.Record{ID: "obs-1", Name: strPtr("Jane Marie Doe")}
		first := StrategyPhonetic.Keys(record)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, StrategyPhonetic.Keys(record))
		}
	})
}
