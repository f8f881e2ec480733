package blocking

import (
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/phonetic"
)

// Strategy is a closed set of blocking key generators. Using a fixed enum
// instead of string dispatch means an unsupported strategy cannot reach key
// generation; string inputs from config go through ParseStrategies.
type Strategy int

const (
	StrategyPhonetic Strategy = iota
	StrategyEmailPrefix
	StrategyIDPrefix
	StrategyPhoneSuffix
	StrategyNameToken
	StrategyDepartment
	StrategyCardPrefix
)

// AllStrategies lists every supported strategy in evaluation order.
var AllStrategies = []Strategy{
	StrategyPhonetic,
	StrategyEmailPrefix,
	StrategyIDPrefix,
	StrategyPhoneSuffix,
	StrategyNameToken,
	StrategyDepartment,
	StrategyCardPrefix,
}

var strategyNames = map[Strategy]string{
	StrategyPhonetic:    "phonetic",
	StrategyEmailPrefix: "email_prefix",
	StrategyIDPrefix:    "id_prefix",
	StrategyPhoneSuffix: "phone_suffix",
	StrategyNameToken:   "name_token",
	StrategyDepartment:  "department",
	StrategyCardPrefix:  "card_prefix",
}

var strategiesByName = func() map[string]Strategy {
	byName := make(map[string]Strategy, len(strategyNames))
	for strategy, name := range strategyNames {
		byName[name] = strategy
	}
	return byName
}()

// Name returns the config/wire name of the strategy, which also namespaces
// its keys in the index.
func (s Strategy) Name() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStrategies maps config strategy names onto the enum. Unknown names are
// logged and skipped so a stale config entry never aborts indexing.
func ParseStrategies(names []string, logger ectologger.Logger) []Strategy {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		strategy, ok := strategiesByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			logger.WithFields(map[string]any{"strategy": name}).Warn("Unknown blocking strategy, skipping")
			continue
		}
		strategies = append(strategies, strategy)
	}
	return strategies
}

// Keys generates the blocking keys for a record under this strategy, in a
// deterministic order. A record missing the field the strategy depends on
// yields no keys.
func (s Strategy) Keys(record *models.Record) []string {
	if record == nil {
		return nil
	}

	switch s {
	case StrategyPhonetic:
		return phoneticKeys(record)
	case StrategyEmailPrefix:
		return emailPrefixKeys(record)
	case StrategyIDPrefix:
		return prefixKeys(record.StudentID, idPrefixLengths)
	case StrategyPhoneSuffix:
		return phoneSuffixKeys(record)
	case StrategyNameToken:
		return nameTokenKeys(record)
	case StrategyDepartment:
		return departmentKeys(record)
	case StrategyCardPrefix:
		return prefixKeys(record.CardID, cardPrefixLengths)
	default:
		return nil
	}
}

var (
	emailPrefixLengths = []int{3, 4, 5}
	idPrefixLengths    = []int{4, 6}
	cardPrefixLengths  = []int{4, 6}
	phoneSuffixLengths = []int{4, 6}
)

func phoneticKeys(record *models.Record) []string {
	if record.Name == nil {
		return nil
	}

	var keys []string
	seen := map[string]bool{}
	add := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}

	for _, token := range strings.Fields(normalizers.NormalizeName(*record.Name)) {
		if len(token) < 2 {
			continue
		}
		add("sx_" + phonetic.Soundex(token))
		primary, alternate := phonetic.DoubleMetaphone(token)
		add("mp_" + primary)
		if alternate != "" {
			add("mp_" + alternate)
		}
	}
	return keys
}

func emailPrefixKeys(record *models.Record) []string {
	if record.Email == nil {
		return nil
	}
	local := normalizers.EmailLocalPart(*record.Email)
	return prefixKeys(&local, emailPrefixLengths)
}

func prefixKeys(field *string, lengths []int) []string {
	if field == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(*field))
	if value == "" {
		return nil
	}

	var keys []string
	for _, length := range lengths {
		if len(value) >= length {
			keys = append(keys, value[:length])
		}
	}
	return keys
}

func phoneSuffixKeys(record *models.Record) []string {
	if record.Phone == nil {
		return nil
	}
	digits := normalizers.DigitsOnly(*record.Phone)

	var keys []string
	for _, length := range phoneSuffixLengths {
		if len(digits) >= length {
			keys = append(keys, digits[len(digits)-length:])
		}
	}
	return keys
}

func nameTokenKeys(record *models.Record) []string {
	if record.Name == nil {
		return nil
	}

	tokens := strings.Fields(normalizers.NormalizeName(*record.Name))

	var keys []string
	seen := map[string]bool{}
	add := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}

	for _, token := range tokens {
		if len(token) < 2 {
			continue
		}
		add("tok_" + token)
		if len(token) >= 3 {
			add("pre_" + token[:3])
		}
	}
	if len(tokens) >= 2 {
		add("fl_" + tokens[0] + "_" + tokens[len(tokens)-1])
	}
	return keys
}

func departmentKeys(record *models.Record) []string {
	if record.Department == nil {
		return nil
	}
	normalized := normalizers.NormalizeDepartment(*record.Department)
	if normalized == "" {
		return nil
	}
	return []string{normalized}
}
