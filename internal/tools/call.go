package tools

// Field accessors for loosely-typed call payloads. JSON numbers decode
// as float64; everything else is asserted at use.

func (c Call) str(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c Call) intField(key string) (int, bool) {
	f, ok := c[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (c Call) list(key string) []any {
	l, _ := c[key].([]any)
	return l
}

func (c Call) strings(key string) []string {
	var out []string
	for _, v := range c.list(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c Call) ints(key string) []int {
	var out []int
	for _, v := range c.list(key) {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
