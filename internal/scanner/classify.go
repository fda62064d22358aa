package scanner

import (
	"path"
	"strings"

	"github.com/repoaudit/repoaudit/internal/models"
)

// SniffLen is how much of a file content sniffing inspects.
const SniffLen = 8 * 1024

// binaryRatio: above this share of non-printable bytes a file is binary.
const binaryRatio = 0.30

type extClass struct {
	class  models.FileClass
	binary bool
}

var extTable = map[string]extClass{
	// code
	".go":    {models.ClassCode, false},
	".py":    {models.ClassCode, false},
	".js":    {models.ClassCode, false},
	".ts":    {models.ClassCode, false},
	".tsx":   {models.ClassCode, false},
	".java":  {models.ClassCode, false},
	".kt":    {models.ClassCode, false},
	".c":     {models.ClassCode, false},
	".h":     {models.ClassCode, false},
	".cpp":   {models.ClassCode, false},
	".cs":    {models.ClassCode, false},
	".rs":    {models.ClassCode, false},
	".rb":    {models.ClassCode, false},
	".php":   {models.ClassCode, false},
	".sh":    {models.ClassCode, false},
	".sql":   {models.ClassCode, false},
	".sol":   {models.ClassCode, false},
	".swift": {models.ClassCode, false},

	// docs
	".md":   {models.ClassDocs, false},
	".rst":  {models.ClassDocs, false},
	".txt":  {models.ClassDocs, false},
	".adoc": {models.ClassDocs, false},

	// config
	".yaml": {models.ClassConfig, false},
	".yml":  {models.ClassConfig, false},
	".json": {models.ClassConfig, false},
	".toml": {models.ClassConfig, false},
	".ini":  {models.ClassConfig, false},
	".env":  {models.ClassConfig, false},
	".xml":  {models.ClassConfig, false},

	// media
	".png":  {models.ClassMedia, true},
	".jpg":  {models.ClassMedia, true},
	".jpeg": {models.ClassMedia, true},
	".gif":  {models.ClassMedia, true},
	".ico":  {models.ClassMedia, true},
	".svg":  {models.ClassMedia, false},
	".mp3":  {models.ClassMedia, true},
	".mp4":  {models.ClassMedia, true},
	".wav":  {models.ClassMedia, true},

	// binary
	".exe":   {models.ClassBinary, true},
	".dll":   {models.ClassBinary, true},
	".so":    {models.ClassBinary, true},
	".dylib": {models.ClassBinary, true},
	".bin":   {models.ClassBinary, true},
	".o":     {models.ClassBinary, true},
	".a":     {models.ClassBinary, true},
	".class": {models.ClassBinary, true},
	".pyc":   {models.ClassBinary, true},
	".wasm":  {models.ClassBinary, true},
	".pdf":   {models.ClassBinary, true},
	".zip":   {models.ClassBinary, true},
	".gz":    {models.ClassBinary, true},
	".tar":   {models.ClassBinary, true},

	// data
	".csv":     {models.ClassData, false},
	".tsv":     {models.ClassData, false},
	".log":     {models.ClassData, false},
	".jsonl":   {models.ClassData, false},
	".parquet": {models.ClassData, true},
	".sqlite":  {models.ClassData, true},
	".db":      {models.ClassData, true},
}

// classifyExt consults the extension table only. The third result
// reports whether the extension was known.
func classifyExt(rel string) (models.FileClass, bool, bool) {
	ext := strings.ToLower(path.Ext(rel))
	if c, ok := extTable[ext]; ok {
		return c.class, c.binary, true
	}
	return "", false, false
}

// Classify categorizes a path using the extension table, falling back
// to content sniffing of the first SniffLen bytes for unknown
// extensions.
func Classify(rel string, head []byte) (models.FileClass, bool) {
	if class, binary, known := classifyExt(rel); known {
		return class, binary
	}
	if looksBinary(head) {
		return models.ClassBinary, true
	}
	return models.ClassData, false
}

// looksBinary reports a NUL byte or a high ratio of non-printable
// bytes in the sniffed prefix.
func looksBinary(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	nonPrintable := 0
	for _, b := range head {
		if b == 0 {
			return true
		}
		if b < 0x09 || (b > 0x0d && b < 0x20) || b == 0x7f {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(head)) > binaryRatio
}
