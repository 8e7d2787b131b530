package classes

import (
	"context"
	"errors"
	"testing"

	"github.com/panbanda/kindred/pkg/models"
	"github.com/panbanda/kindred/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, src string) map[string]*models.ClassRecord {
	t.Helper()
	e := NewExtractor()
	defer e.Close()
	records, err := e.Extract(context.Background(), "mod.py", []byte(src))
	require.NoError(t, err)
	return records
}

func TestExtractBasicChild(t *testing.T) {
	src := `class Base: pass

class Child(Base):
    def __init__(self):
        self.x = 1
    def go(self): pass
`
	records := extract(t, src)
	require.Len(t, records, 2)

	child := records["Child"]
	require.NotNil(t, child)
	assert.Equal(t, []string{"__init__", "go"}, child.Methods)
	assert.Equal(t, []string{"x"}, child.Attributes)
	assert.Equal(t, []string{"Base"}, child.Parents)
	assert.Empty(t, child.Properties)
	assert.Equal(t, "mod.py", child.File)
	assert.Equal(t, uint32(3), child.StartLine)
	assert.Equal(t, uint32(6), child.EndLine)
	assert.Contains(t, child.Source, "class Child(Base):")

	base := records["Base"]
	require.NotNil(t, base)
	assert.Empty(t, base.Methods)
	assert.Empty(t, base.Parents)
}

func TestExtractProperties(t *testing.T) {
	src := `import functools

class Sensor(Device):
    @property
    def value(self):
        return self._value

    @value.setter
    def value(self, v):
        self._value = v

    @functools.cached_property
    def units(self):
        return "mm"

    @staticmethod
    def helper():
        pass

    async def read(self):
        self.last = await self.fetch()
`
	rec := extract(t, src)["Sensor"]
	require.NotNil(t, rec)

	assert.Equal(t, []string{"value", "value", "units", "helper", "read"}, rec.Methods)
	assert.Equal(t, []string{"value", "units"}, rec.Properties)
	assert.Equal(t, []string{"_value", "last"}, rec.Attributes)
}

func TestExtractAttributes(t *testing.T) {
	src := `class Motor(Positioner):
    speed = 10
    low = high = 0
    a, b = 1, 2
    units: str = "mm"
    declared_only: int

    def move(self, target):
        local = target
        self.target = target
        self.count += 1
        self.x, self.y = 0, 0
        other.z = 1

        def inner():
            self.from_closure = True

        class Nested:
            def __init__(self):
                self.nested_only = 1
`
	rec := extract(t, src)["Motor"]
	require.NotNil(t, rec)

	assert.Equal(t, []string{
		"a", "b", "count", "from_closure", "high", "low", "speed", "target", "units", "x", "y",
	}, rec.Attributes)
	assert.NotContains(t, rec.Attributes, "local")
	assert.NotContains(t, rec.Attributes, "declared_only")
	assert.NotContains(t, rec.Attributes, "nested_only")
	assert.Equal(t, []string{"move"}, rec.Methods)
}

func TestExtractCompoundStatementBodies(t *testing.T) {
	src := `class Detector(Device):
    if TYPE_CHECKING:
        typed = None
    else:
        untyped = None
    try:
        fast = load()
    except ImportError:
        slow = None
    finally:
        done = True
    with lock:
        guarded = 1
    for _ in range(1):
        looped = 1
    while False:
        waited = 1
    y = 2

    if HAS_EPICS:
        def trigger(self):
            self.armed = True

    def read(self):
        if self.ready:
            local = 1
`
	rec := extract(t, src)["Detector"]
	require.NotNil(t, rec)

	assert.Equal(t, []string{
		"armed", "done", "fast", "guarded", "looped", "slow", "typed", "untyped", "waited", "y",
	}, rec.Attributes)
	assert.Equal(t, []string{"trigger", "read"}, rec.Methods)
	assert.NotContains(t, rec.Attributes, "local")
}

func TestExtractParentResolution(t *testing.T) {
	src := `class A(Base, ophyd.Device, Generic[T], typing.Mapping[str, int], make_base(), metaclass=ABCMeta):
    pass

class B(Base, Base):
    pass

class C:
    pass

class D():
    pass
`
	records := extract(t, src)

	assert.Equal(t, []string{"Base", "Device", "Generic", "Mapping"}, records["A"].Parents)
	assert.Equal(t, []string{"Base"}, records["B"].Parents)
	assert.Empty(t, records["C"].Parents)
	assert.Empty(t, records["D"].Parents)
}

func TestExtractNestedClassesAreFlat(t *testing.T) {
	src := `class Outer:
    class Inner(Base):
        def run(self):
            pass

    def method(self):
        pass

def factory():
    class Local(Outer):
        pass
    return Local
`
	records := extract(t, src)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"method"}, records["Outer"].Methods)
	assert.Equal(t, []string{"run"}, records["Inner"].Methods)
	assert.Equal(t, []string{"Base"}, records["Inner"].Parents)
	assert.Equal(t, []string{"Outer"}, records["Local"].Parents)
}

func TestExtractRedefinitionKeepsLast(t *testing.T) {
	src := `class Dup:
    def first(self): pass

class Dup:
    def second(self): pass
`
	records := extract(t, src)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"second"}, records["Dup"].Methods)
}

func TestExtractIsIdempotent(t *testing.T) {
	src := `class Child(Base):
    z = 1
    def __init__(self):
        self.b = 1
        self.a = 2
`
	first := extract(t, src)["Child"]
	second := extract(t, src)["Child"]
	assert.ElementsMatch(t, first.Attributes, second.Attributes)
	assert.Equal(t, first.Methods, second.Methods)
}

func TestExtractParseFailure(t *testing.T) {
	e := NewExtractor()
	defer e.Close()

	records, err := e.Extract(context.Background(), "bad.py", []byte("class Broken(:\n  pass\n"))
	require.Error(t, err)
	assert.Nil(t, records)

	var perr *parser.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestExtractNoClasses(t *testing.T) {
	records := extract(t, "x = 1\n\ndef f():\n    return x\n")
	assert.Empty(t, records)
}
