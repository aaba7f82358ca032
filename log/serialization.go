package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// appendAttrWire appends attr to dst, flattening groups into dotted keys.
func appendAttrWire(dst []entities.LogAttrWire, prefix string, attr slog.Attr) []entities.LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindGroup {
		if prefix != "" {
			attr.Key = prefix + "." + attr.Key
		}
		return append(dst, toLogAttrWire(attr))
	}

	groupPrefix := attr.Key
	if prefix != "" && groupPrefix != "" {
		groupPrefix = prefix + "." + groupPrefix
	} else if groupPrefix == "" {
		// Inline group: members keep the enclosing prefix.
		groupPrefix = prefix
	}
	for _, member := range attr.Value.Group() {
		dst = appendAttrWire(dst, groupPrefix, member)
	}
	return dst
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) entities.LogAttrWire {
	wire := entities.LogAttrWire{
		Key: attr.Key,
	}
	// Resolve the attribute value
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%f", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		if v := attr.Value.Any(); v != nil {
			if err, isErr := v.(error); isErr {
				wire.Type = "error"
				wire.Value = err.Error()
			} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", v)
			}
		} else {
			wire.Type = "any"
			wire.Value = "<nil>"
		}
	case slog.KindGroup:
		// Groups are flattened by appendAttrWire; a bare group is rendered whole.
		wire.Type = "group"
		wire.Value = attr.Value.String()
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}
