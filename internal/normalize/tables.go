package normalize

// AliasEntry is one equivalence class of names. Canonical and every alias
// describe the same real-world entity.
type AliasEntry struct {
	Canonical string
	Aliases   []string
}

// companyAliases groups spellings that normalization alone cannot unify.
var companyAliases = []AliasEntry{
	{Canonical: "a16z", Aliases: []string{"andreessen horowitz", "a16z crypto"}},
	{Canonical: "alphabet", Aliases: []string{"google", "google deepmind"}},
	{Canonical: "meta", Aliases: []string{"facebook", "meta platforms"}},
	{Canonical: "coinbase", Aliases: []string{"coinbase global"}},
	{Canonical: "binance", Aliases: []string{"binance.com", "binance us", "bnb chain"}},
	{Canonical: "consensys", Aliases: []string{"consensys software", "metamask"}},
	{Canonical: "polygon", Aliases: []string{"polygon technology", "matic network"}},
	{Canonical: "chainlink", Aliases: []string{"smartcontract", "smartcontract.com", "chainlink labs"}},
	{Canonical: "kraken", Aliases: []string{"payward"}},
	{Canonical: "avalanche", Aliases: []string{"ava labs", "avalabs"}},
	{Canonical: "uniswap", Aliases: []string{"uniswap labs", "universal navigation"}},
	{Canonical: "opensea", Aliases: []string{"ozone networks"}},
	{Canonical: "circle", Aliases: []string{"circle internet financial", "circle internet group"}},
	{Canonical: "gemini", Aliases: []string{"gemini trust company", "gemini trust"}},
	{Canonical: "crypto.com", Aliases: []string{"cryptocom", "foris dax"}},
	{Canonical: "offchain labs", Aliases: []string{"arbitrum", "arbitrum foundation"}},
	{Canonical: "optimism", Aliases: []string{"op labs", "oplabs", "optimism foundation"}},
	{Canonical: "ethereum foundation", Aliases: []string{"eth foundation"}},
}

// legalSuffixes are trailing tokens dropped from company names.
var legalSuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "ltd": {}, "limited": {}, "llc": {},
	"corp": {}, "corporation": {}, "co": {}, "company": {},
	"foundation": {}, "labs": {}, "lab": {}, "protocol": {}, "network": {}, "finance": {},
	"gmbh": {}, "ag": {}, "sa": {}, "sas": {}, "sarl": {}, "bv": {}, "nv": {},
	"pte": {}, "plc": {}, "srl": {}, "kk": {}, "oy": {},
}

// titleAbbreviations expands whole title tokens.
var titleAbbreviations = map[string]string{
	"sr":     "senior",
	"snr":    "senior",
	"jr":     "junior",
	"eng":    "engineer",
	"engr":   "engineer",
	"dev":    "developer",
	"mgr":    "manager",
	"swe":    "software engineer",
	"sre":    "site reliability engineer",
	"fe":     "frontend",
	"be":     "backend",
	"pm":     "product manager",
	"ml":     "machine learning",
	"vp":     "vice president",
	"qa":     "quality assurance",
	"bd":     "business development",
	"mktg":   "marketing",
	"ops":    "operations",
	"assoc":  "associate",
	"admin":  "administrator",
	"infra":  "infrastructure",
	"devrel": "developer relations",
}

// titleSynonymGroups are interchangeable title words. The first entry of a
// group is its representative.
var titleSynonymGroups = [][]string{
	{"engineer", "developer", "programmer"},
	{"frontend", "front-end"},
	{"backend", "back-end"},
	{"fullstack", "full-stack"},
	{"devops", "dev-ops"},
	{"smart-contract", "smartcontract"},
}

// locationAliases is scanned in order; the first entry whose canonical name
// or alias occurs in the location wins.
var locationAliases = []AliasEntry{
	{Canonical: "remote", Aliases: []string{"anywhere", "worldwide", "distributed", "work from home", "wfh"}},
	{Canonical: "new york", Aliases: []string{"nyc", "manhattan", "brooklyn"}},
	{Canonical: "san francisco", Aliases: []string{"sf bay area", "bay area"}},
	{Canonical: "london", Aliases: []string{"greater london"}},
	{Canonical: "berlin", Aliases: []string{}},
	{Canonical: "singapore", Aliases: []string{}},
	{Canonical: "lisbon", Aliases: []string{"lisboa"}},
	{Canonical: "dubai", Aliases: []string{}},
	{Canonical: "toronto", Aliases: []string{}},
	{Canonical: "austin", Aliases: []string{}},
	{Canonical: "miami", Aliases: []string{}},
	{Canonical: "zug", Aliases: []string{"crypto valley"}},
	{Canonical: "hong kong", Aliases: []string{"hongkong"}},
	{Canonical: "ho chi minh city", Aliases: []string{"ho chi minh", "saigon", "hcmc"}},
	{Canonical: "hanoi", Aliases: []string{"ha noi"}},
}

var (
	companyAliasIndex = buildCompanyAliasIndex(companyAliases)
	titleSynonymIndex = buildSynonymIndex(titleSynonymGroups)
)

// buildCompanyAliasIndex maps every normalized spelling to its entry's
// normalized canonical key. Earlier entries win on collisions.
func buildCompanyAliasIndex(entries []AliasEntry) map[string]string {
	index := make(map[string]string)
	for _, entry := range entries {
		canonical := NormalizeCompany(entry.Canonical)
		if canonical == "" {
			continue
		}
		names := append([]string{entry.Canonical}, entry.Aliases...)
		for _, name := range names {
			key := NormalizeCompany(name)
			if key == "" {
				continue
			}
			if _, exists := index[key]; !exists {
				index[key] = canonical
			}
		}
	}
	return index
}

func buildSynonymIndex(groups [][]string) map[string]string {
	index := make(map[string]string)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		for _, word := range group {
			if _, exists := index[word]; !exists {
				index[word] = group[0]
			}
		}
	}
	return index
}

// CompanyAliases returns a copy of the company alias table
func CompanyAliases() []AliasEntry {
	return copyEntries(companyAliases)
}

// LocationAliases returns a copy of the location alias table
func LocationAliases() []AliasEntry {
	return copyEntries(locationAliases)
}

func copyEntries(entries []AliasEntry) []AliasEntry {
	out := make([]AliasEntry, len(entries))
	for i, e := range entries {
		out[i] = AliasEntry{Canonical: e.Canonical, Aliases: append([]string(nil), e.Aliases...)}
	}
	return out
}
