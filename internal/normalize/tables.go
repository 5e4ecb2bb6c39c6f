package normalize

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fallback codes for values missing from the lookup tables.
const (
	OtherRegion   = "OTH"
	OtherProjType = "O"
)

var (
	// RegionCodes is the closed set of region codes MapRegion can return.
	RegionCodes = []string{"LA", "NY", "GA", "CH", "FL", "SF", "NW", "TX", OtherRegion}
	// ProjTypeCodes is the closed set of codes MapProjType can return.
	ProjTypeCodes = []string{"F", "T", "C", "V", OtherProjType}
)

//go:embed tables.yaml
var tablesYAML []byte

type lookupTables struct {
	Regions      map[string]string `yaml:"regions"`
	ProjectTypes map[string]string `yaml:"project_types"`
}

var tables = mustLoadTables(tablesYAML)

func mustLoadTables(raw []byte) lookupTables {
	t, err := loadTables(raw)
	if err != nil {
		panic(fmt.Sprintf("normalize: %v", err))
	}
	return t
}

func loadTables(raw []byte) (lookupTables, error) {
	var t lookupTables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("decode lookup tables: %w", err)
	}
	if err := checkCodes("regions", t.Regions, RegionCodes); err != nil {
		return t, err
	}
	if err := checkCodes("project_types", t.ProjectTypes, ProjTypeCodes); err != nil {
		return t, err
	}
	return t, nil
}

func checkCodes(table string, m map[string]string, allowed []string) error {
	if len(m) == 0 {
		return fmt.Errorf("%s table is empty", table)
	}
	valid := make(map[string]struct{}, len(allowed))
	for _, code := range allowed {
		valid[code] = struct{}{}
	}
	for key, code := range m {
		if _, ok := valid[code]; !ok {
			return fmt.Errorf("%s: %q maps to unknown code %q", table, key, code)
		}
	}
	return nil
}

// MapRegion generalizes a city name to its region code. Matching is exact and
// case-sensitive; anything else, including "", yields OtherRegion.
func MapRegion(location string) string {
	if code, ok := tables.Regions[location]; ok {
		return code
	}
	return OtherRegion
}

// MapProjType generalizes a project category to its single-letter code.
func MapProjType(project string) string {
	if code, ok := tables.ProjectTypes[project]; ok {
		return code
	}
	return OtherProjType
}
