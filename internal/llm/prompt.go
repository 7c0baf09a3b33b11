package llm

import (
	"strings"

	"github.com/joseph-ayodele/handscribe/constants"
)

// BuildPrompt returns the instruction text sent next to the image.
// Printed asks for semantic HTML fragments; Handwritten asks for a faithful
// transcription with [unclear] markers.
func BuildPrompt(mode constants.Mode) string {
	if mode == constants.Printed {
		return strings.Join(printedParts, "\n")
	}
	return strings.Join(handwrittenParts, "\n")
}

var printedParts = []string{
	"Extract all printed text from this image.",
	"Preserve the original formatting, including headings, paragraphs, lists, bold text, italics, and layout.",
	"Provide the output as clean, semantic HTML.",
	"- Use <h1>, <h2>, etc. for headings.",
	"- Use <p> for paragraphs.",
	"- Use <ul>/<ol> and <li> for lists.",
	"- Use <strong> for bold and <em> for italics.",
	"- Do not include <html>, <head>, or <body> tags.",
	"- Ensure the HTML is well-formed.",
	"- If there are tables, try to represent them with <table>, <tr>, <td> tags.",
}

var handwrittenParts = []string{
	"Act as an expert paleographer and handwriting recognition specialist.",
	"Extract all handwritten text from this image.",
	"Instructions:",
	"1. Transcribe the text accurately, even if it is cursive or messy.",
	"2. Maintain the original structure, including line breaks and paragraph separations.",
	"3. If a word is illegible, mark it as " + UnclearToken + ".",
	"4. Provide the output as plain text, but use simple Markdown for basic structure (like headers if they look like headers).",
}

// UnclearToken marks an illegible word in a handwritten transcription.
const UnclearToken = "[unclear]"
