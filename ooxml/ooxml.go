// Package ooxml works with OOXML word-processing packages at the archive
// level: opening and saving the ZIP container, namespace-aware XML queries,
// comment and tracked-change patching, and template style mining.
package ooxml

// Namespace URIs.
const (
	NSWordML   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSWordML14 = "http://schemas.microsoft.com/office/word/2010/wordml"
	NSWordML15 = "http://schemas.microsoft.com/office/word/2012/wordml"
	NSDrawing  = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NSRelDoc   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSRelPkg   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// Relationship types.
const (
	RelComments         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RelCommentsExtended = "http://schemas.microsoft.com/office/2011/relationships/commentsExtended"
	RelStyles           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelSettings         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelTheme            = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelFooter           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	RelImage            = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelOfficeDocument   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
)

// Content types.
const (
	CTDocument         = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	CTTemplate         = "application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml"
	CTComments         = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	CTCommentsExtended = "application/vnd.openxmlformats-officedocument.wordprocessingml.commentsExtended+xml"
	CTStyles           = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	CTSettings         = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	CTFooter           = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	CTTheme            = "application/vnd.openxmlformats-officedocument.theme+xml"
	CTRelationships    = "application/vnd.openxmlformats-package.relationships+xml"
	CTCoreProperties   = "application/vnd.openxmlformats-package.core-properties+xml"
	CTExtProperties    = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

// Well-known part names.
const (
	PartContentTypes     = "[Content_Types].xml"
	PartDocument         = "word/document.xml"
	PartStyles           = "word/styles.xml"
	PartSettings         = "word/settings.xml"
	PartTheme            = "word/theme/theme1.xml"
	PartComments         = "word/comments.xml"
	PartCommentsExtended = "word/commentsExtended.xml"
	PartDocumentRels     = "word/_rels/document.xml.rels"
	PartPackageRels      = "_rels/.rels"
)
