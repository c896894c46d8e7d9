package library

// isoLayout is the strftime layout of todateiso8601 and fromdateiso8601.
const isoLayout = "%Y-%m-%dT%H:%M:%SZ"

// definitions returns the library written in terms of other builtins. A
// definition sees every native, the bytecoded builtins and the definitions
// listed before it.
func definitions() block {
	return pipe(
		misc(),
		selectors(),
		iteration(),
		entries(),
		ordering(),
		regexes(),
		dates(),
	)
}

func selectors() block {
	b := pipe(
		def("select", []string{"f"}, ifte(call("f"), dot(), call("empty"))),
		def("values", nil, call("select", ne(dot(), konst(nil)))),
		def("nulls", nil, call("select", eq(dot(), konst(nil)))),
	)
	for _, kind := range []struct{ name, typ string }{
		{"booleans", "boolean"},
		{"numbers", "number"},
		{"strings", "string"},
		{"arrays", "array"},
		{"objects", "object"},
	} {
		b = pipe(b, def(kind.name, nil, call("select", typeIs(kind.typ))))
	}
	return pipe(b,
		def("iterables", nil, call("select", pipe(call("type"),
			or(eq(dot(), konst("array")), eq(dot(), konst("object")))))),
		def("scalars", nil, call("select", pipe(call("type"),
			and(ne(dot(), konst("array")), ne(dot(), konst("object")))))),
		def("finites", nil, call("select", not(or(call("isinfinite"), call("isnan"))))),
		def("normals", nil, call("select", call("isnormal"))),
	)
}

func iteration() block {
	return pipe(
		def("map", []string{"f"}, collect(pipe(iter(), call("f")))),
		def("recurse", []string{"f"}, local(
			def("r", nil, comma(dot(), pipe(call("f"), call("r")))),
			call("r"),
		)),
		def("recurse", []string{"f", "cond"}, local(
			def("r", nil, comma(dot(), pipe(call("f"), call("select", call("cond")), call("r")))),
			call("r"),
		)),
		def("recurse", nil, call("recurse", iterOpt())),
		def("range", []string{"$x"}, call("range", konst(0.0), ref("x"))),
		def("add", []string{"f"}, reduce(call("f"), "x", konst(nil), plus(dot(), ref("x")))),
		def("add", nil, call("add", iter())),
		def("any", nil, reduce(iter(), "x", konst(false), or(dot(), ref("x")))),
		def("all", nil, reduce(iter(), "x", konst(true), and(dot(), ref("x")))),
		def("any", []string{"f"}, reduce(pipe(iter(), call("f")), "x", konst(false), or(dot(), ref("x")))),
		def("all", []string{"f"}, reduce(pipe(iter(), call("f")), "x", konst(true), and(dot(), ref("x")))),
		def("until", []string{"cond", "update"}, local(
			def("_until", nil, ifte(call("cond"), dot(), pipe(call("update"), call("_until")))),
			call("_until"),
		)),
		def("while", []string{"cond", "update"}, local(
			def("_while", nil, ifte(call("cond"),
				comma(dot(), pipe(call("update"), call("_while"))),
				call("empty"))),
			call("_while"),
		)),
		def("repeat", []string{"f"}, local(
			def("_repeat", nil, comma(dot(), pipe(call("f"), call("_repeat")))),
			call("_repeat"),
		)),
		def("first", nil, index(konst(0.0))),
		def("last", nil, index(konst(-1.0))),
		def("nth", []string{"$n"}, index(ref("n"))),
		def("_flatten", []string{"$x"}, reduce(iter(), "i", konst([]any{}),
			ifte(
				and(pipe(ref("i"), typeIs("array")), ne(ref("x"), konst(0.0))),
				plus(dot(), pipe(ref("i"), call("_flatten", call("_minus", ref("x"), konst(1.0))))),
				plus(dot(), collect(ref("i"))),
			))),
		def("flatten", []string{"$x"}, ifte(lt(ref("x"), konst(0.0)),
			call("error", konst("flatten depth must not be negative")),
			call("_flatten", ref("x")))),
		def("flatten", nil, call("_flatten", konst(-1.0))),
	)
}

func entries() block {
	// {key: $k, value: .[$k]} for every key
	toEntries := collect(as(pipe(call("keys_unsorted"), iter()), "k",
		object(kv("key", ref("k")), kv("value", index(ref("k"))))))

	entryKey := pipe(
		ifte(ne(field("key"), konst(nil)), field("key"),
			ifte(ne(field("k"), konst(nil)), field("k"),
				ifte(ne(field("name"), konst(nil)), field("name"),
					ifte(ne(field("Name"), konst(nil)), field("Name"),
						ifte(ne(field("K"), konst(nil)), field("K"), field("Key")))))),
		ifte(typeIs("string"), dot(), call("tojson")),
	)
	entryValue := ifte(call("has", konst("value")), field("value"), field("v"))
	fromEntries := reduce(iter(), "x", konst(map[string]any{}),
		plus(dot(), object(keyValue{pipe(ref("x"), entryKey), pipe(ref("x"), entryValue)})))

	return pipe(
		def("to_entries", nil, toEntries),
		def("from_entries", nil, fromEntries),
		def("with_entries", []string{"f"}, pipe(call("to_entries"), call("map", call("f")), call("from_entries"))),
		def("paths", nil, pipe(call("path", call("recurse")), call("select", gt(call("length"), konst(0.0))))),
		def("paths", []string{"node_filter"}, as(dot(), "dot", pipe(
			call("paths"),
			call("select", as(dot(), "p", pipe(ref("dot"), call("getpath", ref("p")), call("node_filter")))),
		))),
		def("leaf_paths", nil, call("paths", call("scalars"))),
		def("del", []string{"f"}, call("delpaths", collect(call("path", call("f"))))),
		def("in", []string{"xs"}, as(dot(), "x", pipe(call("xs"), call("has", ref("x"))))),
		def("inside", []string{"xs"}, as(dot(), "x", pipe(call("xs"), call("contains", ref("x"))))),
		def("indices", []string{"$i"}, ifte(and(typeIs("array"), pipe(ref("i"), typeIs("array"))), index(ref("i")),
			ifte(typeIs("array"), index(collect(ref("i"))),
				ifte(and(typeIs("string"), pipe(ref("i"), typeIs("string"))), call("_strindices", ref("i")),
					index(ref("i")))))),
		def("index", []string{"$i"}, pipe(call("indices", ref("i")), index(konst(0.0)))),
		def("rindex", []string{"$i"}, pipe(call("indices", ref("i")), index(konst(-1.0)))),
	)
}

func ordering() block {
	var b block
	for _, name := range []string{"sort_by", "group_by", "unique_by", "min_by", "max_by"} {
		// name(f): _name_impl(map([f]))
		b = pipe(b, def(name, []string{"f"},
			call("_"+name+"_impl", call("map", collect(call("f"))))))
	}
	return b
}

func regexes() block {
	// reduce (.captures[] | select(.name != null)) as $c ({}; . + {($c.name): $c.string})
	capture := pipe(
		call("match", call("re"), call("mods")),
		reduce(
			pipe(field("captures"), iter(), call("select", ne(field("name"), konst(nil)))),
			"c", konst(map[string]any{}),
			plus(dot(), object(keyValue{pipe(ref("c"), field("name")), pipe(ref("c"), field("string"))})),
		),
	)
	return pipe(
		def("match", []string{"re", "mode"},
			pipe(call("_match_impl", call("re"), call("mode"), konst(false)), iter())),
		def("match", []string{"$val"}, regexDispatch("match")),
		def("test", []string{"re", "mode"},
			call("_match_impl", call("re"), call("mode"), konst(true))),
		def("test", []string{"$val"}, regexDispatch("test")),
		def("capture", []string{"re", "mods"}, capture),
		def("capture", []string{"$val"}, regexDispatch("capture")),
	)
}

// regexDispatch is the one-argument form of a regex builtin: $val is
// either the regex or a [regex, flags] array.
func regexDispatch(name string) block {
	elem := func(i float64) block { return pipe(ref("val"), index(konst(i))) }
	length := func() block { return pipe(ref("val"), call("length")) }
	isArray := func() block { return eq(ref("vt"), konst("array")) }
	return as(pipe(ref("val"), call("type")), "vt",
		ifte(eq(ref("vt"), konst("string")), call(name, ref("val"), konst(nil)),
			ifte(and(isArray(), gt(length(), konst(1.0))), call(name, elem(0), elem(1)),
				ifte(and(isArray(), gt(length(), konst(0.0))), call(name, elem(0), konst(nil)),
					call("error", plus(ref("vt"), konst(" not a string or array")))))))
}

func misc() block {
	return pipe(
		def("error", []string{"msg"}, pipe(call("msg"), call("error"))),
		def("halt_error", nil, call("halt_error", konst(5.0))),
		def("join", []string{"$x"}, pipe(
			reduce(iter(), "i", konst(nil), plus(
				ifte(eq(dot(), konst(nil)), konst(""), plus(dot(), ref("x"))),
				pipe(ref("i"), ifte(eq(dot(), konst(nil)), konst(""),
					ifte(typeIs("string"), dot(), call("tojson")))),
			)),
			ifte(eq(dot(), konst(nil)), konst(""), dot()),
		)),
		def("abs", nil, ifte(and(typeIs("number"), lt(dot(), konst(0.0))), call("_negate"), dot())),
		def("toarray", nil, ifte(typeIs("array"), dot(), collect(dot()))),
	)
}

func dates() block {
	return pipe(
		def("todateiso8601", nil, call("strftime", konst(isoLayout))),
		def("fromdateiso8601", nil, pipe(call("strptime", konst(isoLayout)), call("mktime"))),
		def("todate", nil, call("todateiso8601")),
		def("fromdate", nil, call("fromdateiso8601")),
		def("date", nil, call("todate")),
		def("dateadd", []string{"u", "$n"}, plus(dot(), ref("n"))),
		def("datesub", []string{"u", "$n"}, call("_minus", dot(), ref("n"))),
	)
}
