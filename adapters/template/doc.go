// Package exporttemplate renders the HTML fragments and print pages of an
// export with Django-style pongo2 templates.
//
// Templates are registered by name on an Executor and executed with a map
// context. Autoescaping is on; markup that is already serialized (diagram
// svg, composed documents) must be passed through the safe filter.
package exporttemplate
