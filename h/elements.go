package h

import (
	gh "maragu.dev/gomponents/html"
)

func Button(children ...H) H {
	return gh.Button(retype(children)...)
}

func Div(children ...H) H {
	return gh.Div(retype(children)...)
}

func Main(children ...H) H {
	return gh.Main(retype(children)...)
}

func Meta(children ...H) H {
	return gh.Meta(retype(children)...)
}

func P(children ...H) H {
	return gh.P(retype(children)...)
}

func Script(children ...H) H {
	return gh.Script(retype(children)...)
}

func Span(children ...H) H {
	return gh.Span(retype(children)...)
}

func StyleEl(children ...H) H {
	return gh.StyleEl(retype(children)...)
}
