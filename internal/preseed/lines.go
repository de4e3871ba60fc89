package preseed

import "strings"

// lines is an append-only accumulator for document or script lines.
type lines []string

func (l *lines) add(line ...string) {
	*l = append(*l, line...)
}

func (l *lines) comment(text string) {
	l.add("# " + text)
}

func (l *lines) blank() {
	l.add("")
}

// directive appends `<owner> <key> <type> <value>`. An empty value leaves
// the directive without a trailing value.
func (l *lines) directive(owner, key, typ, value string) {
	d := owner + " " + key + " " + typ
	if value != "" {
		d += " " + value
	}
	l.add(d)
}

// di appends a directive owned by the debian installer.
func (l *lines) di(key, typ, value string) {
	l.directive("d-i", key, typ, value)
}

func (l lines) String() string {
	return strings.Join(l, "\n")
}
