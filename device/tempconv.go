package device

import (
	"strconv"

	"github.com/ollo69/wideq-go/model"
)

// TempConversion converts between Celsius and Fahrenheit using the model's
// own lookup tables. The devices carry conversion tables that do not match
// the arithmetic conversion exactly, and the two maps are not inverses.
// The zero value is ready to use; tables load lazily on first conversion.
type TempConversion struct {
	f2cMap map[int]float64
	c2fMap map[float64]float64
}

// F2C converts a Fahrenheit value through the model's "TempFahToCel" table.
// Values outside the table pass through unchanged.
func (t *TempConversion) F2C(value float64, info model.Info) float64 {
	if t.f2cMap == nil {
		t.f2cMap = map[int]float64{}
		if mapping, ok := info.EnumOptions("TempFahToCel"); ok {
			for f, c := range mapping {
				fNum, err1 := strconv.Atoi(f)
				cNum, err2 := strconv.ParseFloat(c, 64)
				if err1 == nil && err2 == nil {
					t.f2cMap[fNum] = cNum
				}
			}
		}
	}
	if value != float64(int(value)) {
		return value
	}
	if c, ok := t.f2cMap[int(value)]; ok {
		return c
	}
	return value
}

// C2F converts a Celsius value through the model's "TempCelToFah" table.
// Values outside the table pass through unchanged.
func (t *TempConversion) C2F(value float64, info model.Info) float64 {
	if t.c2fMap == nil {
		t.c2fMap = map[float64]float64{}
		if mapping, ok := info.EnumOptions("TempCelToFah"); ok {
			for c, f := range mapping {
				cNum, err1 := strconv.ParseFloat(c, 64)
				fNum, err2 := strconv.ParseFloat(f, 64)
				if err1 == nil && err2 == nil {
					t.c2fMap[cNum] = fNum
				}
			}
		}
	}
	if f, ok := t.c2fMap[value]; ok {
		return f
	}
	return value
}
