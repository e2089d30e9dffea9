package codegen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
)

const generatedHeader = "Code generated by classflow. DO NOT EDIT."

// receiverName returns a short receiver identifier for a class. The
// first rune is taken whole so multibyte class names stay valid Go.
func receiverName(class string) string {
	return strings.ToLower(string([]rune(class)[0]))
}

// hasOwnID reports whether the class already declares an id attribute.
func hasOwnID(c Class) bool {
	for _, a := range c.Attributes {
		if strings.EqualFold(a.Name, "id") {
			return true
		}
	}
	return false
}

// defaultValue renders an attribute default as a literal of the mapped
// Go type. Non-string tokens are emitted verbatim.
func defaultValue(a Attribute) *jen.Statement {
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "string", "str", "char", "text":
		return jen.Lit(strings.Trim(a.Default, `"'`))
	default:
		return jen.Id(a.Default)
	}
}

// writeEntity adds the struct, constructor, accessors, and operation
// stubs for one class to an entity-layer file.
func writeEntity(f *jen.File, c Class) {
	recv := receiverName(c.Name)

	var fields []jen.Code
	if c.Parent != "" {
		fields = append(fields, jen.Id(c.Parent))
	}
	if !hasOwnID(c) {
		fields = append(fields, jen.Id("ID").String().Tag(map[string]string{"json": "id"}))
	}
	for _, a := range c.Attributes {
		fields = append(fields, jen.Id(a.Name).Add(goType(a.Type)))
	}
	for _, r := range c.Refs {
		if r.Many {
			fields = append(fields, jen.Id(r.Field).Index().Op("*").Id(r.Target))
		} else {
			fields = append(fields, jen.Id(r.Field).Op("*").Id(r.Target))
		}
	}

	f.Commentf("%s is the %q entity.", c.Name, c.Display)
	f.Type().Id(c.Name).Struct(fields...)

	var defaults []jen.Code
	for _, a := range c.Attributes {
		if a.Default != "" {
			defaults = append(defaults, jen.Id(a.Name).Op(":").Add(defaultValue(a)))
		}
	}
	f.Commentf("New%s returns a %s with its declared defaults applied.", c.Name, c.Name)
	f.Func().Id("New" + c.Name).Params().Op("*").Id(c.Name).Block(
		jen.Return(jen.Op("&").Id(c.Name).Values(defaults...)),
	)

	for _, a := range c.Attributes {
		getter := exported(a.Name)
		if getter == a.Name {
			// Field is already exported, accessors would collide.
			continue
		}
		f.Func().Params(jen.Id(recv).Op("*").Id(c.Name)).Id(getter).Params().Add(goType(a.Type)).Block(
			jen.Return(jen.Id(recv).Dot(a.Name)),
		)
		f.Func().Params(jen.Id(recv).Op("*").Id(c.Name)).Id("Set"+getter).Params(jen.Id("v").Add(goType(a.Type))).Block(
			jen.Id(recv).Dot(a.Name).Op("=").Id("v"),
		)
	}

	for _, op := range c.Operations {
		var params []jen.Code
		for _, p := range op.Params {
			params = append(params, jen.Id(p.Name).Add(goType(p.Type)))
		}
		stub := f.Func().Params(jen.Id(recv).Op("*").Id(c.Name)).Id(exported(op.Name)).Params(params...)
		if isVoid(op.ReturnType) {
			stub.Block()
			continue
		}
		stub.Add(goType(op.ReturnType)).Block(
			jen.Var().Id("out").Add(goType(op.ReturnType)),
			jen.Return(jen.Id("out")),
		)
	}
}

// entityFile renders a standalone entity-layer file for one class.
func entityFile(c Class) *jen.File {
	f := jen.NewFile("entity")
	f.HeaderComment(generatedHeader)
	writeEntity(f, c)
	return f
}

// accessFile renders the repository contract and an in-memory
// implementation for one class.
func accessFile(c Class, entityPkg string) *jen.File {
	f := jen.NewFile("access")
	f.HeaderComment(generatedHeader)

	entity := func() *jen.Statement { return jen.Op("*").Qual(entityPkg, c.Name) }
	repo := c.Name + "Repository"
	impl := "Memory" + repo
	errName := "Err" + c.Name + "NotFound"

	f.Commentf("%s is not-found sentinel for %s lookups.", errName, c.Name)
	f.Var().Id(errName).Op("=").Qual("errors", "New").Call(jen.Lit(strings.ToLower(c.Name) + " not found"))

	f.Commentf("%s is the persistence contract for %s entities.", repo, c.Name)
	f.Type().Id(repo).Interface(
		jen.Id("Create").Params(jen.Qual("context", "Context"), entity()).Error(),
		jen.Id("Get").Params(jen.Qual("context", "Context"), jen.String()).Params(entity(), jen.Error()),
		jen.Id("List").Params(jen.Qual("context", "Context")).Params(jen.Index().Add(entity()), jen.Error()),
		jen.Id("Update").Params(jen.Qual("context", "Context"), entity()).Error(),
		jen.Id("Delete").Params(jen.Qual("context", "Context"), jen.String()).Error(),
	)

	f.Commentf("%s keeps %s entities in process memory.", impl, c.Name)
	f.Type().Id(impl).Struct(
		jen.Id("mu").Qual("sync", "RWMutex"),
		jen.Id("items").Map(jen.String()).Add(entity()),
	)

	f.Func().Id("New"+impl).Params().Op("*").Id(impl).Block(
		jen.Return(jen.Op("&").Id(impl).Values(
			jen.Id("items").Op(":").Map(jen.String()).Add(entity()).Values(),
		)),
	)

	recv := jen.Id("r").Op("*").Id(impl)

	f.Func().Params(recv).Id("Create").Params(jen.Id("_").Qual("context", "Context"), jen.Id("e").Add(entity())).Error().Block(
		jen.Id("r").Dot("mu").Dot("Lock").Call(),
		jen.Defer().Id("r").Dot("mu").Dot("Unlock").Call(),
		jen.If(jen.Id("e").Dot("ID").Op("==").Lit("")).Block(
			jen.Return(jen.Qual("errors", "New").Call(jen.Lit("missing id"))),
		),
		jen.Id("r").Dot("items").Index(jen.Id("e").Dot("ID")).Op("=").Id("e"),
		jen.Return(jen.Nil()),
	)

	f.Func().Params(recv).Id("Get").Params(jen.Id("_").Qual("context", "Context"), jen.Id("id").String()).Params(entity(), jen.Error()).Block(
		jen.Id("r").Dot("mu").Dot("RLock").Call(),
		jen.Defer().Id("r").Dot("mu").Dot("RUnlock").Call(),
		jen.List(jen.Id("e"), jen.Id("ok")).Op(":=").Id("r").Dot("items").Index(jen.Id("id")),
		jen.If(jen.Op("!").Id("ok")).Block(
			jen.Return(jen.Nil(), jen.Id(errName)),
		),
		jen.Return(jen.Id("e"), jen.Nil()),
	)

	f.Func().Params(recv).Id("List").Params(jen.Id("_").Qual("context", "Context")).Params(jen.Index().Add(entity()), jen.Error()).Block(
		jen.Id("r").Dot("mu").Dot("RLock").Call(),
		jen.Defer().Id("r").Dot("mu").Dot("RUnlock").Call(),
		jen.Id("out").Op(":=").Make(jen.Index().Add(entity()), jen.Lit(0), jen.Len(jen.Id("r").Dot("items"))),
		jen.For(jen.List(jen.Id("_"), jen.Id("e")).Op(":=").Range().Id("r").Dot("items")).Block(
			jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id("e")),
		),
		jen.Return(jen.Id("out"), jen.Nil()),
	)

	f.Func().Params(recv).Id("Update").Params(jen.Id("_").Qual("context", "Context"), jen.Id("e").Add(entity())).Error().Block(
		jen.Id("r").Dot("mu").Dot("Lock").Call(),
		jen.Defer().Id("r").Dot("mu").Dot("Unlock").Call(),
		jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Id("r").Dot("items").Index(jen.Id("e").Dot("ID")), jen.Op("!").Id("ok")).Block(
			jen.Return(jen.Id(errName)),
		),
		jen.Id("r").Dot("items").Index(jen.Id("e").Dot("ID")).Op("=").Id("e"),
		jen.Return(jen.Nil()),
	)

	f.Func().Params(recv).Id("Delete").Params(jen.Id("_").Qual("context", "Context"), jen.Id("id").String()).Error().Block(
		jen.Id("r").Dot("mu").Dot("Lock").Call(),
		jen.Defer().Id("r").Dot("mu").Dot("Unlock").Call(),
		jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Id("r").Dot("items").Index(jen.Id("id")), jen.Op("!").Id("ok")).Block(
			jen.Return(jen.Id(errName)),
		),
		jen.Delete(jen.Id("r").Dot("items"), jen.Id("id")),
		jen.Return(jen.Nil()),
	)

	return f
}

// logicFile renders the service delegating to the access layer.
func logicFile(c Class, entityPkg, accessPkg string) *jen.File {
	f := jen.NewFile("logic")
	f.HeaderComment(generatedHeader)

	entity := func() *jen.Statement { return jen.Op("*").Qual(entityPkg, c.Name) }
	service := c.Name + "Service"
	recv := jen.Id("s").Op("*").Id(service)

	f.Commentf("%s applies business rules for %s entities before persisting.", service, c.Name)
	f.Type().Id(service).Struct(
		jen.Id("repo").Qual(accessPkg, c.Name+"Repository"),
	)

	f.Func().Id("New"+service).Params(
		jen.Id("repo").Qual(accessPkg, c.Name+"Repository"),
	).Op("*").Id(service).Block(
		jen.Return(jen.Op("&").Id(service).Values(jen.Id("repo").Op(":").Id("repo"))),
	)

	f.Func().Params(recv).Id("Create").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("e").Add(entity())).Error().Block(
		jen.If(jen.Id("e").Op("==").Nil()).Block(
			jen.Return(jen.Qual("errors", "New").Call(jen.Lit("nil entity"))),
		),
		jen.If(jen.Id("e").Dot("ID").Op("==").Lit("")).Block(
			jen.Return(jen.Qual("errors", "New").Call(jen.Lit("missing id"))),
		),
		jen.Return(jen.Id("s").Dot("repo").Dot("Create").Call(jen.Id("ctx"), jen.Id("e"))),
	)

	f.Func().Params(recv).Id("Get").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("id").String()).Params(entity(), jen.Error()).Block(
		jen.Return(jen.Id("s").Dot("repo").Dot("Get").Call(jen.Id("ctx"), jen.Id("id"))),
	)

	f.Func().Params(recv).Id("List").Params(jen.Id("ctx").Qual("context", "Context")).Params(jen.Index().Add(entity()), jen.Error()).Block(
		jen.Return(jen.Id("s").Dot("repo").Dot("List").Call(jen.Id("ctx"))),
	)

	f.Func().Params(recv).Id("Update").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("e").Add(entity())).Error().Block(
		jen.If(jen.Id("e").Op("==").Nil()).Block(
			jen.Return(jen.Qual("errors", "New").Call(jen.Lit("nil entity"))),
		),
		jen.Return(jen.Id("s").Dot("repo").Dot("Update").Call(jen.Id("ctx"), jen.Id("e"))),
	)

	f.Func().Params(recv).Id("Delete").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("id").String()).Error().Block(
		jen.Return(jen.Id("s").Dot("repo").Dot("Delete").Call(jen.Id("ctx"), jen.Id("id"))),
	)

	return f
}

// interfaceFile renders the request/response handler contract.
func interfaceFile(c Class, entityPkg, logicPkg string) *jen.File {
	f := jen.NewFile("iface")
	f.HeaderComment(generatedHeader)

	entity := func() *jen.Statement { return jen.Op("*").Qual(entityPkg, c.Name) }
	request := c.Name + "Request"
	response := c.Name + "Response"
	handler := c.Name + "Handler"
	payload := inflectDownFirst(c.Name)

	f.Commentf("%s carries one inbound %s command.", request, c.Name)
	f.Type().Id(request).Struct(
		jen.Id("ID").String().Tag(map[string]string{"json": "id,omitempty"}),
		jen.Id("Payload").Add(entity()).Tag(map[string]string{"json": payload + ",omitempty"}),
	)

	f.Commentf("%s is the uniform outcome envelope for %s commands.", response, c.Name)
	f.Type().Id(response).Struct(
		jen.Id("Result").Add(entity()).Tag(map[string]string{"json": "result,omitempty"}),
		jen.Id("Items").Index(jen.Add(entity())).Tag(map[string]string{"json": "items,omitempty"}),
		jen.Id("Error").String().Tag(map[string]string{"json": "error,omitempty"}),
	)

	f.Type().Id(handler).Struct(
		jen.Id("service").Op("*").Qual(logicPkg, c.Name+"Service"),
	)

	f.Func().Id("New"+handler).Params(
		jen.Id("service").Op("*").Qual(logicPkg, c.Name+"Service"),
	).Op("*").Id(handler).Block(
		jen.Return(jen.Op("&").Id(handler).Values(jen.Id("service").Op(":").Id("service"))),
	)

	recv := jen.Id("h").Op("*").Id(handler)
	fail := func() jen.Code {
		return jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Id(response).Values(jen.Id("Error").Op(":").Err().Dot("Error").Call())),
		)
	}

	f.Func().Params(recv).Id("Create").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("req").Id(request)).Id(response).Block(
		jen.Err().Op(":=").Id("h").Dot("service").Dot("Create").Call(jen.Id("ctx"), jen.Id("req").Dot("Payload")),
		fail(),
		jen.Return(jen.Id(response).Values(jen.Id("Result").Op(":").Id("req").Dot("Payload"))),
	)

	f.Func().Params(recv).Id("Get").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("req").Id(request)).Id(response).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Id("h").Dot("service").Dot("Get").Call(jen.Id("ctx"), jen.Id("req").Dot("ID")),
		fail(),
		jen.Return(jen.Id(response).Values(jen.Id("Result").Op(":").Id("e"))),
	)

	f.Func().Params(recv).Id("List").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("_").Id(request)).Id(response).Block(
		jen.List(jen.Id("items"), jen.Err()).Op(":=").Id("h").Dot("service").Dot("List").Call(jen.Id("ctx")),
		fail(),
		jen.Return(jen.Id(response).Values(jen.Id("Items").Op(":").Id("items"))),
	)

	f.Func().Params(recv).Id("Update").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("req").Id(request)).Id(response).Block(
		jen.Err().Op(":=").Id("h").Dot("service").Dot("Update").Call(jen.Id("ctx"), jen.Id("req").Dot("Payload")),
		fail(),
		jen.Return(jen.Id(response).Values(jen.Id("Result").Op(":").Id("req").Dot("Payload"))),
	)

	f.Func().Params(recv).Id("Delete").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("req").Id(request)).Id(response).Block(
		jen.Err().Op(":=").Id("h").Dot("service").Dot("Delete").Call(jen.Id("ctx"), jen.Id("req").Dot("ID")),
		fail(),
		jen.Return(jen.Id(response).Values()),
	)

	return f
}

func inflectDownFirst(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// render serializes a jennifer file.
func render(f *jen.File) ([]byte, error) {
	var b strings.Builder
	if err := f.Render(&b); err != nil {
		return nil, fmt.Errorf("codegen: render: %w", err)
	}
	return []byte(b.String()), nil
}
