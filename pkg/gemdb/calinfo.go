package gemdb

import (
	"context"
	"fmt"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/spf13/cast"
)

// CalInfoColumns are the production summary columns needed to calibrate a
// VFAT3.
var CalInfoColumns = []string{
	"vfatn", "vfat3_ser_num", "vfat3_barcode", "iref",
	"adc0m", "adc1m", "adc0b", "adc1b", "cal_dacm", "cal_dacb",
}

type CalInfo struct {
	VFATN   int
	SerNum  string
	Barcode string
	Iref    int
	ADC0M   float64
	ADC1M   float64
	ADC0B   float64
	ADC1B   float64
	CalDACM float64
	CalDACB float64
}

func calInfoFromRow(row Row) (CalInfo, error) {
	for _, column := range CalInfoColumns {
		if _, ok := row.Values[column]; !ok {
			return CalInfo{}, fmt.Errorf("column %s missing", column)
		}
	}

	info := CalInfo{
		VFATN:   row.VFATN,
		SerNum:  row.String("vfat3_ser_num"),
		Barcode: row.String("vfat3_barcode"),
	}
	var err error
	if info.Iref, err = cast.ToIntE(row.Values["iref"]); err != nil {
		return info, fmt.Errorf("iref of %s: %w", info.SerNum, err)
	}
	floats := []struct {
		column string
		dst    *float64
	}{
		{"adc0m", &info.ADC0M},
		{"adc1m", &info.ADC1M},
		{"adc0b", &info.ADC0B},
		{"adc1b", &info.ADC1B},
		{"cal_dacm", &info.CalDACM},
		{"cal_dacb", &info.CalDACB},
	}
	for _, f := range floats {
		if *f.dst, err = cast.ToFloat64E(row.Values[f.column]); err != nil {
			return info, fmt.Errorf("%s of %s: %w", f.column, info.SerNum, err)
		}
	}
	return info, nil
}

// GetVFAT3CalInfo returns the calibration constants of chipIDs, ordered by
// VFAT position. Chips missing from the view are absent from the result.
func (a *Accessor) GetVFAT3CalInfo(ctx context.Context, chipIDs []uint32) ([]CalInfo, error) {
	if len(chipIDs) == 0 {
		return nil, &gemana.ErrUsage{Option: "chips", Value: "", Reason: "calibration info needs a chip list"}
	}
	table, err := a.GetVFAT3ProdSumView(ctx, chipIDs)
	if err != nil {
		return nil, err
	}
	infos := make([]CalInfo, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row.VFATN < 0 {
			continue
		}
		info, err := calInfoFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("error reading calibration of vfat %d: %w", row.VFATN, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
