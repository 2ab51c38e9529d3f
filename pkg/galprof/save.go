package galprof

import (
	"bufio"
	"io"
	"strings"
)

var banner = strings.Repeat("*", 70)

// SaveModel writes the model's banner and one line per parameter in
// declaration order.
func (m *Model) SaveModel(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("\n\n" + banner + "\n")
	bw.WriteString(m.name + "\n")
	bw.WriteString(banner + "\n")
	for _, q := range m.params.All() {
		bw.WriteString(q.String() + "\n")
	}
	return bw.Flush()
}
