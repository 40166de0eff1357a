package gemdb

import (
	"fmt"
	"strconv"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	sqlx "github.com/jmoiron/sqlx"
	"golang.org/x/exp/slices"
)

// Schema holds the read-only GEM views.
const Schema = "CMS_GEM_MUON_VIEW"

const (
	ViewVFAT3ChipConf    = "GEM_VFAT3_CHIP_CONF_V_RH"
	ViewVFAT3ProdSummary = "GEM_VFAT3_PROD_SUMMARY_V_RH"
)

var KnownViews = []string{
	ViewVFAT3ChipConf,
	ViewVFAT3ProdSummary,
}

// ErrUnknownView is returned before any query when a view is not in
// KnownViews. It unwraps to a usage error.
type ErrUnknownView struct {
	View string
}

func (e *ErrUnknownView) Error() string {
	return fmt.Sprintf("view %s not in known views: %s", e.View, strings.Join(KnownViews, ", "))
}

func (e *ErrUnknownView) Unwrap() error {
	return &gemana.ErrUsage{Option: "view", Value: e.View, Reason: "unknown GEM DB view"}
}

// SerialNumber formats a chip ID the way the views store VFAT3_SER_NUM.
func SerialNumber(chipID uint32) string {
	return fmt.Sprintf("%#x", chipID)
}

// BuildViewQuery returns the select statement for view, filtered on the
// serial numbers of chipIDs when any are given. The query uses '?' bind
// variables.
func BuildViewQuery(view string, chipIDs []uint32) (string, []interface{}, error) {
	if !slices.Contains(KnownViews, view) {
		return "", nil, &ErrUnknownView{View: view}
	}
	query := fmt.Sprintf("SELECT * FROM %s.%s data", Schema, view)
	if len(chipIDs) == 0 {
		return query, nil, nil
	}

	serials := make([]string, len(chipIDs))
	for i, id := range chipIDs {
		serials[i] = SerialNumber(id)
	}
	return sqlx.In(query+" WHERE data.VFAT3_SER_NUM IN (?)", serials)
}

// ParseChipIDs parses a comma separated list of chip IDs. Hex values need
// the 0x prefix.
func ParseChipIDs(value string) ([]uint32, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var ids []uint32
	for _, token := range strings.Split(value, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(token), 0, 32)
		if err != nil {
			return nil, &gemana.ErrUsage{Option: "chips", Value: value, Reason: fmt.Sprintf("%q is not a chip ID", token)}
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
