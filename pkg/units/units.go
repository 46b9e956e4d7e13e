package units

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Unit is a byte magnitude. B through EiB are the binary units; for those the
// value is the power of 1024 represented. KB through EB are the decimal units
// libvirt accepts, powers of 1000.
type Unit int

const (
	B Unit = iota
	KiB
	MiB
	GiB
	TiB
	PiB
	EiB
	KB
	MB
	GB
	TB
	PB
	EB
)

var unitNames = [...]string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "KB", "MB", "GB", "TB", "PB", "EB"}

// aliases accepted in libvirt unit attributes
var unitAliases = map[string]Unit{
	"b":     B,
	"bytes": B,
	"k":     KiB,
	"K":     KiB,
	"m":     MiB,
	"M":     MiB,
	"g":     GiB,
	"G":     GiB,
	"t":     TiB,
	"T":     TiB,
	"p":     PiB,
	"P":     PiB,
	"e":     EiB,
	"E":     EiB,
}

func (u Unit) String() string {
	if !u.Valid() {
		return "Unit(" + strconv.Itoa(int(u)) + ")"
	}
	return unitNames[u]
}

func (u Unit) Valid() bool {
	return u >= B && u <= EB
}

// Decimal reports whether u is a power of 1000.
func (u Unit) Decimal() bool {
	return u >= KB && u <= EB
}

// Bytes is the number of bytes in one u.
func (u Unit) Bytes() float64 {
	if u.Decimal() {
		return math.Pow(1000, float64(u-KB+1))
	}
	return math.Pow(1024, float64(u))
}

// Quantity is a value tagged with the unit it is expressed in.
type Quantity struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  Unit    `json:"unit" yaml:"unit"`
}

func (q Quantity) String() string {
	return strconv.FormatFloat(q.Value, 'f', -1, 64) + " " + q.Unit.String()
}

func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(b []byte) error {
	p, ok := ParseUnit(string(b))
	if !ok {
		*u = B
		return nil
	}
	*u = p
	return nil
}

// ParseUnit resolves a canonical unit name or a libvirt alias.
func ParseUnit(name string) (Unit, bool) {
	for i, n := range unitNames {
		if n == name {
			return Unit(i), true
		}
	}
	if u, ok := unitAliases[name]; ok {
		return u, true
	}
	if u, ok := unitAliases[strings.ToLower(name)]; ok {
		return u, true
	}
	return B, false
}

// Convert expresses value (given in from) in the unit to.
// Negative or non-finite input converts to 0.
func Convert(ctx context.Context, value float64, from, to Unit) float64 {
	return ConvertVerbose(ctx, value, from, to).Value
}

func ConvertVerbose(ctx context.Context, value float64, from, to Unit) Quantity {
	logger := zerolog.Ctx(ctx)

	if !from.Valid() || !to.Valid() {
		logger.Error().Stringer("from", from).Stringer("to", to).Msg("unknown unit in conversion")
		return Quantity{Value: 0, Unit: to}
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		logger.Error().Float64("value", value).Msg("conversion input is not a non-negative number")
		return Quantity{Value: 0, Unit: to}
	}

	if from == to {
		return Quantity{Value: value, Unit: to}
	}

	if !from.Decimal() && !to.Decimal() {
		return Quantity{
			Value: value * math.Pow(1024, float64(int(from)-int(to))),
			Unit:  to,
		}
	}

	return Quantity{
		Value: value * from.Bytes() / to.Bytes(),
		Unit:  to,
	}
}

// ConvertString converts the raw text of a sized XML node. Unparsable
// values or unit names yield 0.
func ConvertString(ctx context.Context, input string, fromName string, toName string) float64 {
	logger := zerolog.Ctx(ctx)

	from, ok := ParseUnit(fromName)
	if !ok {
		logger.Error().Str("unit", fromName).Msg("unknown source unit")
		return 0
	}
	to, ok := ParseUnit(toName)
	if !ok {
		logger.Error().Str("unit", toName).Msg("unknown target unit")
		return 0
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		logger.Error().Err(err).Str("input", input).Msg("conversion input is not numeric")
		return 0
	}

	return Convert(ctx, value, from, to)
}

// BestUnit returns the largest binary unit in which value (given in from) is
// still >= 1.
func BestUnit(value float64, from Unit) Unit {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) || !from.Valid() {
		return from
	}
	if from.Decimal() {
		value *= from.Bytes()
		from = B
	}
	exp := int(from) + int(math.Floor(math.Log(value)/math.Log(1024)))
	if exp < int(B) {
		return B
	}
	if exp > int(EiB) {
		return EiB
	}
	return Unit(exp)
}

func ConvertToBest(ctx context.Context, value float64, from Unit) Quantity {
	return ConvertVerbose(ctx, value, from, BestUnit(value, from))
}

// FormatBytes renders a byte count with IEC suffixes.
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}
