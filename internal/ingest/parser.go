package ingest

import (
	"encoding/csv"
	"regexp"
	"strings"

	"wifiscore/internal/normalize"
)

var (
	reTimestamp = regexp.MustCompile(`^\s*([0-9]{4}-[0-9]{2}-[0-9]{2}[ T][0-9:.+-Z]+)`)
	reLogcatTS  = regexp.MustCompile(`^\s*([0-9]{2}-[0-9]{2}\s+[0-9]{2}:[0-9]{2}:[0-9]{2}\.[0-9]{3})`)
	reKV        = regexp.MustCompile(`(?i)([a-z_]+)=("[^"]*"|[^\s]+)`)
)

// Field aliases accepted in every input format.
var (
	timestampKeys = []string{"timestamp", "time", "ts"}
	eventKeys     = []string{"event", "call", "kind", "type"}
	ssidKeys      = []string{"ssid", "network"}
	bssidKeys     = []string{"bssid", "ap", "mac"}
	frequencyKeys = []string{"frequency", "freq", "channel"}
	rssiKeys      = []string{"rssi", "signal"}
	linkKeys      = []string{"link_speed", "linkspeed", "link"}
	elapsedKeys   = []string{"elapsed_ms", "elapsed", "uptime_ms"}
)

// csvColumns is the column order of header-less CSV lines.
var csvColumns = []string{"timestamp", "event", "ssid", "bssid", "frequency", "rssi", "link_speed", "elapsed_ms"}

// Parser turns JSON, CSV and key=value lines into EventFields. A Parser
// remembers the first CSV header it sees, so use one per stream.
type Parser struct {
	csv *CSVParser
}

func NewParser() *Parser {
	return &Parser{csv: NewCSVParser()}
}

// ParseLine returns nil, nil for blank lines and CSV headers.
func (p *Parser) ParseLine(line string) (*normalize.EventFields, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return nil, nil
	}
	if looksLikeJSON(trim) {
		if fields, err := parseJSON(trim); err == nil {
			fields.Raw = line
			return fields, nil
		}
	}
	if strings.Contains(trim, ",") && !strings.Contains(trim, "=") {
		fields, err := p.csv.Parse(trim)
		if err == nil {
			if fields == nil {
				return nil, nil
			}
			fields.Raw = line
			return fields, nil
		}
	}
	fields, err := parsePlain(trim)
	if err != nil {
		return nil, err
	}
	fields.Raw = line
	return fields, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func parseJSON(line string) (*normalize.EventFields, error) {
	return ParseJSONBytes([]byte(line))
}

func parsePlain(line string) (*normalize.EventFields, error) {
	ts, rest := extractTimestamp(line)
	kv := map[string]string{}
	for _, match := range reKV.FindAllStringSubmatch(line, -1) {
		kv[strings.ToLower(match[1])] = strings.Trim(match[2], `"`)
	}
	fields := fieldsFromMap(kv)
	if fields.Timestamp == "" {
		fields.Timestamp = ts
	}
	if fields.Event == "" && rest != "" {
		if tokens := strings.Fields(rest); len(tokens) > 0 && !strings.Contains(tokens[0], "=") {
			fields.Event = strings.TrimSuffix(tokens[0], ":")
		}
	}
	return fields, nil
}

func fieldsFromMap(kv map[string]string) *normalize.EventFields {
	fields := &normalize.EventFields{Extras: map[string]string{}}
	fields.Timestamp = firstNonEmpty(kv, timestampKeys...)
	fields.Event = firstNonEmpty(kv, eventKeys...)
	fields.SSID = firstNonEmpty(kv, ssidKeys...)
	fields.BSSID = firstNonEmpty(kv, bssidKeys...)
	fields.Frequency = firstNonEmpty(kv, frequencyKeys...)
	fields.RSSI = firstNonEmpty(kv, rssiKeys...)
	fields.LinkSpeed = firstNonEmpty(kv, linkKeys...)
	fields.ElapsedMs = firstNonEmpty(kv, elapsedKeys...)
	for k, v := range kv {
		fields.Extras[k] = v
	}
	return fields
}

func extractTimestamp(line string) (string, string) {
	for _, re := range []*regexp.Regexp{reTimestamp, reLogcatTS} {
		m := re.FindStringSubmatchIndex(line)
		if len(m) >= 4 {
			ts := strings.TrimSpace(line[m[2]:m[3]])
			rest := strings.TrimSpace(line[m[3]:])
			return ts, rest
		}
	}
	return "", line
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

type CSVParser struct {
	header []string
}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(line string) (*normalize.EventFields, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, nil
	}
	if p.header == nil && looksLikeHeader(record) {
		p.header = normalizeHeader(record)
		return nil, nil
	}
	columns := p.header
	if columns == nil {
		columns = csvColumns
	}
	kv := make(map[string]string, len(record))
	for i, name := range columns {
		if i >= len(record) {
			break
		}
		kv[name] = strings.TrimSpace(record[i])
	}
	return fieldsFromMap(kv), nil
}

func looksLikeHeader(record []string) bool {
	for _, v := range record {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, keys := range [][]string{timestampKeys, eventKeys, bssidKeys, rssiKeys} {
			for _, k := range keys {
				if v == k {
					return true
				}
			}
		}
	}
	return false
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
