package parse

import (
	"bytes"
	"strings"

	"github.com/rnicolet/bankmatch/internal/model"
)

// DetectFileType classifies a statement file. The declared file name's
// extension wins; otherwise the content is sniffed for OFX and PDF magic
// markers, and everything else is treated as CSV. Best effort only.
func DetectFileType(fileName string, data []byte) model.FileType {
	name := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(name, ".csv"):
		return model.FileCSV
	case strings.HasSuffix(name, ".ofx"), strings.HasSuffix(name, ".qfx"):
		return model.FileOFX
	case strings.HasSuffix(name, ".pdf"):
		return model.FilePDF
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return model.FilePDF
	}

	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	if bytes.Contains(head, []byte("OFXHEADER")) || bytes.Contains(head, []byte("<OFX>")) {
		return model.FileOFX
	}

	return model.FileCSV
}
