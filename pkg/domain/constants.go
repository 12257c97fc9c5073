package domain

// SHACL UI vocabulary used when walking the widget scoring graph.
const (
	SHUINamespace        = "http://www.w3.org/ns/shacl-ui#"
	SHUIScore            = SHUINamespace + "Score"
	SHUIWidget           = SHUINamespace + "widget"
	SHUIScoreValue       = SHUINamespace + "score"
	SHUIDataGraphShape   = SHUINamespace + "dataGraphShape"
	SHUIShapesGraphShape = SHUINamespace + "shapesGraphShape"
)

// Common XSD datatypes offered for literal focus nodes.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	XSDString    = XSDNamespace + "string"
	XSDBoolean   = XSDNamespace + "boolean"
	XSDInteger   = XSDNamespace + "integer"
	XSDDecimal   = XSDNamespace + "decimal"
	XSDDate      = XSDNamespace + "date"
	XSDDateTime  = XSDNamespace + "dateTime"
)
