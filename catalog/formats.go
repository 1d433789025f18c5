// Package catalog implements trade-publishing specifics on top of the
// royalty engine: sales formats, standard royalty plans, and the JSON
// contract factory.
package catalog

import "github.com/warp/royalty-engine/royalty"

// =============================================================================
// PUBLISHING SALES FORMATS
// =============================================================================

// Format is the concrete sales-format type for trade publishing.
// Implements royalty.FormatType.
type Format string

func (f Format) FormatID() string { return string(f) }

func (f Format) FormatClass() string {
	switch f {
	case FormatEbook:
		return "digital"
	case FormatAudiobook, FormatAudioDownload:
		return "audio"
	default:
		return "print"
	}
}

// Compile-time check that Format implements royalty.FormatType
var _ royalty.FormatType = Format("")

// Formats for trade publishing
const (
	FormatHardcover     Format = "hardcover"
	FormatPaperback     Format = "paperback"
	FormatMassMarket    Format = "mass_market"
	FormatLargePrint    Format = "large_print"
	FormatEbook         Format = "ebook"
	FormatAudiobook     Format = "audiobook"
	FormatAudioDownload Format = "audio_download"
)

// Register all publishing formats with the royalty registry
func init() {
	royalty.RegisterFormat(FormatHardcover)
	royalty.RegisterFormat(FormatPaperback)
	royalty.RegisterFormat(FormatMassMarket)
	royalty.RegisterFormat(FormatLargePrint)
	royalty.RegisterFormat(FormatEbook)
	royalty.RegisterFormat(FormatAudiobook)
	royalty.RegisterFormat(FormatAudioDownload)
}
