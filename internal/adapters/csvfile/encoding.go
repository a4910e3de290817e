package csvfile

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText normaliza la entrada a UTF-8 sin BOM. Las exportaciones de hojas de
// cálculo y terminales de datos llegan a menudo en UTF-16 o con BOM UTF-8.
func decodeText(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
