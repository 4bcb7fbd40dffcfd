package email

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Directory maps list names to the addresses they expand to. It is built
// once and never mutated, so it can be shared between goroutines.
type Directory struct {
	lists map[string][]string
}

func NewDirectory(lists map[string][]string) Directory {
	d := Directory{lists: make(map[string][]string, len(lists))}
	for name, addrs := range lists {
		d.lists[name] = append([]string{}, addrs...)
	}
	return d
}

// Lookup returns a copy of the named list. A configured empty list is found.
func (d Directory) Lookup(name string) ([]string, bool) {
	addrs, ok := d.lists[name]
	if !ok {
		return nil, false
	}
	return append([]string{}, addrs...), true
}

func (d Directory) Names() []string {
	names := lo.Keys(d.lists)
	sort.Strings(names)
	return names
}

func (d Directory) Len() int {
	return len(d.lists)
}

// Resolve expands @list references in to and returns the unique addresses
// in first-seen order.
func Resolve(to Recipients, dir Directory) ([]string, error) {
	groups := make([][]string, 0, len(to))
	for _, entry := range to {
		if !isListRef(entry) {
			groups = append(groups, []string{entry})
			continue
		}

		addrs, ok := dir.Lookup(listName(entry))
		if !ok {
			return nil, NewUnknownListError(entry)
		}
		groups = append(groups, addrs)
	}

	return lo.Uniq(lo.Flatten(groups)), nil
}

// Expand resolves the recipients of m into an Outgoing message.
func (d Directory) Expand(m Message) (Outgoing, error) {
	addrs, err := Resolve(m.To, d)
	if err != nil {
		return Outgoing{}, err
	}

	return Outgoing{
		From:       m.From,
		To:         strings.Join(addrs, ", "),
		Recipients: addrs,
		Subject:    m.Subject,
		Text:       m.Text,
		Extra:      m.Extra,
	}, nil
}

func isListRef(entry string) bool {
	return strings.HasPrefix(strings.TrimSpace(entry), "@")
}

func listName(entry string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(entry), "@"))
}
