package schema

// Sentinel encodes a built-in type without allocating a Shape.
// List and map sentinels are formed by OR-ing ListModifier or MapModifier
// with the element sentinel, e.g. ListModifier|Numeric.
type Sentinel int

const (
	String                Sentinel = 0
	Numeric               Sentinel = 1
	Boolean               Sentinel = 2
	Timestamp             Sentinel = 4
	TimestampDateTime     Sentinel = 5
	TimestampHTTPDate     Sentinel = 6
	TimestampEpochSeconds Sentinel = 7
	Document              Sentinel = 15
	BigInteger            Sentinel = 17
	BigDecimal            Sentinel = 19
	Blob                  Sentinel = 21
	StreamingBlob         Sentinel = 42

	ListModifier Sentinel = 64
	MapModifier  Sentinel = 128

	// Unit is the empty shape. It is neither a structure nor a primitive.
	Unit Sentinel = -1
)

func (Sentinel) isRef() {}

// IsList reports whether s is a list sentinel.
func (s Sentinel) IsList() bool {
	return s >= 0 && s&ListModifier != 0
}

// IsMap reports whether s is a map sentinel.
func (s Sentinel) IsMap() bool {
	return s >= 0 && s&MapModifier != 0
}

// Elem strips the list or map modifier.
func (s Sentinel) Elem() Sentinel {
	if s < 0 {
		return s
	}
	return s &^ (ListModifier | MapModifier)
}

// IsTimestamp reports whether s is one of the timestamp sentinels.
func (s Sentinel) IsTimestamp() bool {
	return s >= Timestamp && s <= TimestampEpochSeconds
}

// String returns a readable name for the sentinel.
func (s Sentinel) String() string {
	switch {
	case s == Unit:
		return "unit"
	case s.IsList():
		return "list<" + s.Elem().String() + ">"
	case s.IsMap():
		return "map<" + s.Elem().String() + ">"
	}
	switch s {
	case String:
		return "string"
	case Numeric:
		return "numeric"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	case TimestampDateTime:
		return "timestamp(date-time)"
	case TimestampHTTPDate:
		return "timestamp(http-date)"
	case TimestampEpochSeconds:
		return "timestamp(epoch-seconds)"
	case Document:
		return "document"
	case BigInteger:
		return "bigInteger"
	case BigDecimal:
		return "bigDecimal"
	case Blob:
		return "blob"
	case StreamingBlob:
		return "streamingBlob"
	default:
		return "unknown"
	}
}
