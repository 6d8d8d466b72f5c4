package h

import gh "maragu.dev/gomponents/html"

func Type(v string) H {
	return gh.Type(v)
}

func Src(v string) H {
	return gh.Src(v)
}

func ID(v string) H {
	return gh.ID(v)
}

// Data attributes automatically have their name prefixed with "data-".
func Data(name, v string) H {
	return gh.Data(name, v)
}

func AriaLive(v string) H {
	return gh.Aria("live", v)
}
