package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	indexSegment   = regexp.MustCompile(`\[\d+\]`)
	indexedElement = regexp.MustCompile(`^input\.(sources|rules)\[(\d+)\]`)
)

// errorLocation is a parsed errorDetails.at value. Pattern has every array
// index replaced with [N]; Index is the position of the source or rule the
// location points into, or -1.
type errorLocation struct {
	At         string
	Pattern    string
	Collection string
	Index      int
}

func parseErrorLocation(at string) errorLocation {
	loc := errorLocation{
		At:      at,
		Pattern: indexSegment.ReplaceAllString(at, "[N]"),
		Index:   -1,
	}
	if m := indexedElement.FindStringSubmatch(at); m != nil {
		if i, err := strconv.Atoi(m[2]); err == nil {
			loc.Collection = m[1]
			loc.Index = i
		}
	}
	return loc
}

// translateContext is what the translator knows about the request that failed.
type translateContext struct {
	op      Operation
	sources []SourceDocument
	dest    DestinationOptions
}

// translationInput is passed to message builders. Details is the raw
// errorDetails of the matched error (the inner error for job failures).
type translationInput struct {
	ctx     translateContext
	env     *errorEnvelope
	loc     errorLocation
	details json.RawMessage
}

// messageFunc builds a message; an empty return means the rule does not apply.
type messageFunc func(in translationInput) string

// translationRule maps an error code, optionally restricted to a location
// pattern, to a message builder.
type translationRule struct {
	code    string
	at      string
	message messageFunc
}

type translationTable []translationRule

// lookup returns rules for code in priority order: rules whose location
// pattern equals pattern, then code-only rules.
func (t translationTable) lookup(code, pattern string) []messageFunc {
	var exact, general []messageFunc
	for _, rule := range t {
		if rule.code != code {
			continue
		}
		switch {
		case rule.at == "":
			general = append(general, rule.message)
		case rule.at == pattern:
			exact = append(exact, rule.message)
		}
	}
	return append(exact, general...)
}

func (t translationTable) message(code string, in translationInput) string {
	for _, fn := range t.lookup(code, in.loc.Pattern) {
		if msg := fn(in); msg != "" {
			return msg
		}
	}
	return ""
}

// translateRejection converts a failed submission response into an error.
func translateRejection(table translationTable, env *errorEnvelope, tc translateContext) *Error {
	in := translationInput{ctx: tc, env: env, loc: parseErrorLocation(env.At), details: env.RawErrorDetails}
	if msg := table.message(env.ErrorCode, in); msg != "" {
		return env.toError(tc.op, KindRejected, msg)
	}
	return env.toError(tc.op, KindUnrecognized, "")
}

// translateJobFailure converts a process which ended in the error state. The
// single inner error, when present, is matched before the outer error code.
func translateJobFailure(table translationTable, env *errorEnvelope, tc translateContext) *Error {
	loc := parseErrorLocation(env.At)
	if inner, ok := env.singleInnerError(); ok {
		in := translationInput{ctx: tc, env: env, loc: loc, details: inner.RawErrorDetails}
		if msg := table.message(inner.ErrorCode, in); msg != "" {
			return env.toError(tc.op, KindJobFailed, msg)
		}
	}
	in := translationInput{ctx: tc, env: env, loc: loc, details: env.RawErrorDetails}
	if msg := table.message(env.ErrorCode, in); msg != "" {
		return env.toError(tc.op, KindJobFailed, msg)
	}
	return env.toError(tc.op, KindUnrecognized, "")
}

// describeSource names a source for messages. The index is only included
// when the request has more than one source.
func describeSource(sources []SourceDocument, i int) string {
	desc := "SourceDocument"
	if len(sources) > 1 {
		desc += fmt.Sprintf(" at index %d", i)
	}
	if i >= 0 && i < len(sources) && sources[i].LocalFilePath != "" {
		desc += ` ("` + sources[i].LocalFilePath + `")`
	}
	return desc
}

func describeLocation(in translationInput) string {
	field := ""
	if idx := strings.IndexByte(in.loc.At, ']'); idx >= 0 && idx+1 < len(in.loc.At) {
		field = strings.TrimPrefix(in.loc.At[idx+1:], ".")
	}
	switch in.loc.Collection {
	case "sources":
		desc := describeSource(in.ctx.sources, in.loc.Index)
		if field != "" {
			return field + " of " + desc
		}
		return desc
	case "rules":
		desc := fmt.Sprintf("rule at index %d", in.loc.Index)
		if field != "" {
			return field + " of " + desc
		}
		return desc
	default:
		return in.loc.At
	}
}

func detailString(details json.RawMessage, key string) string {
	if len(details) == 0 {
		return ""
	}
	var m map[string]json.RawMessage
	if json.Unmarshal(details, &m) != nil {
		return ""
	}
	var s string
	if json.Unmarshal(m[key], &s) != nil {
		return ""
	}
	return s
}

func formatName(f DestinationFormat) string {
	return strings.ToUpper(string(f))
}

func sourceMessage(format string) messageFunc {
	return func(in translationInput) string {
		if in.loc.Collection != "sources" {
			return ""
		}
		return fmt.Sprintf(format, describeSource(in.ctx.sources, in.loc.Index))
	}
}

func fixedMessage(msg string) messageFunc {
	return func(translationInput) string { return msg }
}

func formatMessage(format string) messageFunc {
	return func(in translationInput) string {
		return fmt.Sprintf(format, formatName(in.ctx.dest.Format))
	}
}

func dimensionRules() []translationRule {
	var rules []translationRule
	for _, f := range []DestinationFormat{FormatJPEG, FormatPNG, FormatTIFF} {
		for _, dim := range []string{"maxWidth", "maxHeight"} {
			format, dim := f, dim
			rules = append(rules, translationRule{
				code: "InvalidDimensionValue",
				at:   fmt.Sprintf("input.dest.%sOptions.%s", format, dim),
				message: func(in translationInput) string {
					return fmt.Sprintf(`Invalid %s value for %s conversion: "%s". Use a pixel value such as "512px".`,
						dim, formatName(format), dimensionValue(in.ctx.dest, format, dim))
				},
			})
		}
	}
	return rules
}

func dimensionValue(dest DestinationOptions, format DestinationFormat, dim string) string {
	var width, height string
	switch format {
	case FormatJPEG:
		if dest.JPEG != nil {
			width, height = dest.JPEG.MaxWidth, dest.JPEG.MaxHeight
		}
	case FormatPNG:
		if dest.PNG != nil {
			width, height = dest.PNG.MaxWidth, dest.PNG.MaxHeight
		}
	case FormatTIFF:
		if dest.TIFF != nil {
			width, height = dest.TIFF.MaxWidth, dest.TIFF.MaxHeight
		}
	}
	if dim == "maxWidth" {
		return width
	}
	return height
}

func headerOrFooter(at string) string {
	if strings.HasPrefix(at, "input.dest.footer") {
		return "footer"
	}
	return "header"
}

// conversionSubmitTable maps errors returned when a content conversion is submitted.
var conversionSubmitTable = append(translationTable{
	{code: "WorkFileDoesNotExist", message: sourceMessage("%s refers to a remote work file which does not exist. It may have expired.")},
	{code: "WorkFileDoesNotExist", message: fixedMessage("A remote work file used by the conversion does not exist. It may have expired.")},
	{code: "InvalidPageSyntax", at: "input.sources[N].pages", message: func(in translationInput) string {
		pages := ""
		if i := in.loc.Index; i >= 0 && i < len(in.ctx.sources) {
			pages = in.ctx.sources[i].Pages
		}
		return fmt.Sprintf(`%s has an invalid pages value: "%s"`, describeSource(in.ctx.sources, in.loc.Index), pages)
	}},
	{code: "InvalidInput", at: "input.dest.pdfOptions.ocr.language", message: func(in translationInput) string {
		lang := ""
		if in.ctx.dest.PDF != nil && in.ctx.dest.PDF.OCR != nil {
			lang = in.ctx.dest.PDF.OCR.Language
		}
		return fmt.Sprintf(`Unsupported OCR language "%s".`, lang)
	}},
	{code: "InvalidInput", at: "input.dest.format", message: formatMessage("Unsupported destination format %s.")},
	{code: "InvalidInput", at: "input.dest.header.lines", message: fixedMessage("Invalid header: lines must contain at least one line of text.")},
	{code: "InvalidInput", at: "input.dest.footer.lines", message: fixedMessage("Invalid footer: lines must contain at least one line of text.")},
	{code: "InvalidInput", at: "input.dest.header.fontSize", message: func(in translationInput) string {
		return fmt.Sprintf(`Invalid header fontSize value: "%s".`, in.ctx.dest.Header.fontSize())
	}},
	{code: "InvalidInput", at: "input.dest.footer.fontSize", message: func(in translationInput) string {
		return fmt.Sprintf(`Invalid footer fontSize value: "%s".`, in.ctx.dest.Footer.fontSize())
	}},
	{code: "InvalidInput", at: "input.dest.header.color", message: func(in translationInput) string {
		return fmt.Sprintf(`Invalid header color value: "%s".`, in.ctx.dest.Header.color())
	}},
	{code: "InvalidInput", at: "input.dest.footer.color", message: func(in translationInput) string {
		return fmt.Sprintf(`Invalid footer color value: "%s".`, in.ctx.dest.Footer.color())
	}},
	{code: "InvalidInput", message: func(in translationInput) string {
		if in.loc.Collection == "" {
			return ""
		}
		return fmt.Sprintf("Invalid value for %s.", describeLocation(in))
	}},
	{code: "UnsupportedDestinationFormatWhenUsingHeaderOrFooter", message: formatMessage("Header and footer are not supported when converting to %s.")},
	{code: "ForceOneFilePerPageNotSupportedWhenUsingHeaderOrFooter", message: fixedMessage("Header and footer cannot be used together with forceOneFilePerPage.")},
	{code: "MaxWidthOrMaxHeightMustBeSpecifiedWhenRasterizingCadInput", message: formatMessage("When converting a CAD SourceDocument to %s, you must specify maxWidth or maxHeight.")},
	{code: "MultipleSourcesAreNotSupportedForThisDestinationFormat", message: formatMessage("Multiple SourceDocuments are not supported when converting to %s.")},
	{code: "PagesPropertyNotSupportedWhenUsingHeaderOrFooter", message: sourceMessage("%s specifies pages, which cannot be combined with a header or footer.")},
	{code: "PagesPropertyNotSupportedWhenUsingHeaderOrFooter", message: fixedMessage("Header and footer cannot be used when a SourceDocument specifies pages.")},
	{code: "MultipleSourceDocumentsNotSupportedWhenUsingHeaderOrFooter", message: fixedMessage("Header and footer cannot be used when combining multiple SourceDocuments.")},
	{code: "UnrecognizedExpression", message: func(in translationInput) string {
		expr := detailString(in.details, "expression")
		if expr == "" {
			return fmt.Sprintf("The %s contains an unrecognized expression.", headerOrFooter(in.loc.At))
		}
		return fmt.Sprintf(`The %s contains an unrecognized expression: "%s".`, headerOrFooter(in.loc.At), expr)
	}},
	{code: "UnsupportedSourceFileFormat", message: sourceMessage("%s has a file format which the remote server does not support.")},
	{code: "UnsupportedSourceFileFormat", message: fixedMessage("A SourceDocument has a file format which the remote server does not support.")},
	{code: "UnsupportedSourceFileFormatForOCR", message: sourceMessage("%s has a file format which is not supported for OCR.")},
	{code: "UnsupportedSourceFileFormatForOCR", message: fixedMessage("A SourceDocument has a file format which is not supported for OCR.")},
	{code: "FeatureNotLicensed", message: func(in translationInput) string {
		if feature := detailString(in.details, "feature"); feature != "" {
			return fmt.Sprintf(`Remote server is not licensed for the feature "%s".`, feature)
		}
		return "Remote server is not licensed to perform this operation."
	}},
	{code: "LicenseCouldNotBeVerified", message: fixedMessage("Remote server's license could not be verified.")},
}, dimensionRules()...)

// conversionJobTable maps errors of a content conversion process which ended in the error state.
var conversionJobTable = translationTable{
	{code: "RequestedHeaderOrFooterFontIsNotAvailable", message: func(in translationInput) string {
		font := detailString(in.details, "fontFamily")
		if font == "" {
			font = in.ctx.dest.headerFooterFont()
		}
		if font == "" {
			return "The font requested for the header or footer is not available on the remote server."
		}
		return fmt.Sprintf(`The font "%s" requested for the header or footer is not available on the remote server.`, font)
	}},
	{code: "InvalidPassword", message: invalidPasswordMessage},
	{code: "WorkFileDoesNotExist", message: fixedMessage("A remote work file used by the conversion does not exist. It may have expired.")},
}

// markupBurnTable maps errors of a markup burner process, both at submission and in the terminal state.
var markupBurnTable = translationTable{
	{code: "WorkFileDoesNotExist", at: "input.documentFileId", message: fixedMessage("Document work file does not exist. It may have expired.")},
	{code: "WorkFileDoesNotExist", at: "input.markupFileId", message: fixedMessage("Markup work file does not exist. It may have expired.")},
	{code: "WorkFileDoesNotExist", message: fixedMessage("A remote work file used by the markup burner does not exist. It may have expired.")},
	{code: "InvalidMarkup", message: fixedMessage("Markup JSON is invalid and could not be burned into the document.")},
	{code: "InvalidPassword", message: fixedMessage("The document is password-protected. Markup cannot be burned into it.")},
	{code: "FeatureNotLicensed", message: fixedMessage("Remote server is not licensed to burn markup.")},
	{code: "LicenseCouldNotBeVerified", message: fixedMessage("Remote server's license could not be verified.")},
}

type echoedSource struct {
	FileID   string  `json:"fileId"`
	Password *string `json:"password"`
}

// invalidPasswordMessage finds the source whose password was rejected and
// tells apart a missing password from a wrong one.
func invalidPasswordMessage(in translationInput) string {
	var detail struct {
		Sources []echoedSource `json:"sources"`
	}
	_ = json.Unmarshal(in.details, &detail)

	index := matchEchoedSource(in.ctx.sources, detail.Sources, true)
	if index < 0 {
		index = matchEchoedSource(in.ctx.sources, detail.Sources, false)
	}
	if index < 0 && len(in.ctx.sources) == 1 {
		index = 0
	}
	if index < 0 {
		return ""
	}

	desc := describeSource(in.ctx.sources, index)
	if in.ctx.sources[index].Password == "" {
		return fmt.Sprintf("Password required for %s.", desc)
	}
	return fmt.Sprintf("Invalid password for %s.", desc)
}

// matchEchoedSource returns the index of the first source referenced by an
// echoed source. A missing echoed password means none was supplied.
func matchEchoedSource(sources []SourceDocument, echoed []echoedSource, matchPassword bool) int {
	for _, e := range echoed {
		for i, src := range sources {
			if src.RemoteWorkFile == nil || src.RemoteWorkFile.FileID != e.FileID {
				continue
			}
			if matchPassword {
				password := ""
				if e.Password != nil {
					password = *e.Password
				}
				if password != src.Password {
					continue
				}
			}
			return i
		}
	}
	return -1
}

func (h *HeaderFooterOptions) fontSize() string {
	if h == nil {
		return ""
	}
	return h.FontSize
}

func (h *HeaderFooterOptions) color() string {
	if h == nil {
		return ""
	}
	return h.Color
}

func (o DestinationOptions) headerFooterFont() string {
	if o.Header != nil && o.Header.FontFamily != "" {
		return o.Header.FontFamily
	}
	if o.Footer != nil {
		return o.Footer.FontFamily
	}
	return ""
}
