package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register the listing style on package initialization
	_ = ListingDark
}

// ListingDark is the color scheme used for disassembly listings.
var ListingDark = styles.Register(chroma.MustNewStyle("baretk-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",    // Default text white
	chroma.Background:     "bg:#16181d", // Dark background
	chroma.Comment:        "#8A8F98",    // Byte columns and addresses in gray
	chroma.CommentPreproc: "#8A8F98",

	// Assembly lexer mappings
	chroma.Keyword:       "#FFFFFF", // Mnemonics in white
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.Name:          "#73B8C2", // Registers in teal
	chroma.NameBuiltin:   "#73B8C2",
	chroma.NameVariable:  "#73B8C2",

	// Immediates and addresses
	chroma.LiteralNumber:        "#FF6AC1",
	chroma.LiteralNumberHex:     "#FF6AC1",
	chroma.LiteralNumberBin:     "#FF6AC1",
	chroma.LiteralNumberOct:     "#FF6AC1",
	chroma.LiteralNumberInteger: "#FF6AC1",
	chroma.LiteralNumberFloat:   "#FF6AC1",

	// Labels and symbols
	chroma.NameLabel:    "#F2C94C", // Labels in gold
	chroma.NameFunction: "#FFFFFF", // Mnemonics tokenized as functions stay white

	// Operators and punctuation
	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",

	// Strings
	chroma.String: "#E8C468",
}))
