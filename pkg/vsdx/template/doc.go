// Package template evaluates the small directive language embedded in
// Visio shape text and page names.
//
// Two delimiter families are recognised:
//
//	{{ expr }}                       - output an expression (escaped by Options.Escape)
//	{% for item in items %}...{% endfor %}
//	{% for i, item in items %}...{% endfor %}
//	{% if cond %}...{% elif other %}...{% else %}...{% endif %}
//	{% unless cond %}...{% endunless %}
//
// Any block may also be closed with a bare {% end %}. Inside a loop the
// variable "loop" exposes index, index0, first, last and length.
//
// Expressions support literals, nested field access (a.b, a["b"], a[0]),
// arithmetic, comparison, the logical operators and/or/not (or &, |, !) and
// calls into a FunctionRegistry.
//
// Templates are compiled once and may be executed many times:
//
//	tmpl, err := template.Compile(src)
//	if err != nil {
//	    return err
//	}
//	out, err := tmpl.Execute(template.Data{"items": []int{1, 2, 3}}, nil)
package template
