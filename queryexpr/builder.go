package queryexpr

// builtinMethods is the closed set of methods understood by the remote API.
var builtinMethods = []Method{
	{Name: "equal", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny, List: true,
		Description: "Attribute is equal to the value, or to any value in the list",
		Example:     `Query.equal("status", "published")`},
	{Name: "notEqual", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny, List: true,
		Description: "Attribute is not equal to the value",
		Example:     `Query.notEqual("status", "draft")`},
	{Name: "lessThan", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny,
		Description: "Attribute is less than the value",
		Example:     `Query.lessThan("price", 100)`},
	{Name: "lessThanEqual", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny,
		Description: "Attribute is less than or equal to the value",
		Example:     `Query.lessThanEqual("price", 100)`},
	{Name: "greaterThan", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny,
		Description: "Attribute is greater than the value",
		Example:     `Query.greaterThan("stock", 0)`},
	{Name: "greaterThanEqual", Group: GroupComparison, Shape: ShapeAttrValue, Kind: KindAny,
		Description: "Attribute is greater than or equal to the value",
		Example:     `Query.greaterThanEqual("stock", 1)`},
	{Name: "between", Group: GroupComparison, Shape: ShapeAttrRange, Kind: KindAny,
		Description: "Attribute is between start and end (inclusive)",
		Example:     `Query.between("age", 18, 65)`},
	{Name: "notBetween", Group: GroupComparison, Shape: ShapeAttrRange, Kind: KindAny,
		Description: "Attribute is outside start and end",
		Example:     `Query.notBetween("age", 18, 65)`},

	{Name: "startsWith", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Attribute starts with the value",
		Example:     `Query.startsWith("name", "Al")`},
	{Name: "endsWith", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Attribute ends with the value",
		Example:     `Query.endsWith("email", "@example.com")`},
	{Name: "notStartsWith", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Attribute does not start with the value",
		Example:     `Query.notStartsWith("name", "test")`},
	{Name: "notEndsWith", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Attribute does not end with the value",
		Example:     `Query.notEndsWith("email", "@test.com")`},
	{Name: "search", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Full-text search on the attribute (requires a fulltext index)",
		Example:     `Query.search("title", "appwrite")`},
	{Name: "notSearch", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString,
		Description: "Attribute does not match the full-text search",
		Example:     `Query.notSearch("title", "draft")`},
	{Name: "contains", Group: GroupText, Shape: ShapeAttrValue, Kind: KindAny, List: true,
		Description: "Attribute contains the value, or any value in the list",
		Example:     `Query.contains("tags", ["go", "rust"])`},
	{Name: "notContains", Group: GroupText, Shape: ShapeAttrValue, Kind: KindAny, List: true,
		Description: "Attribute contains none of the values",
		Example:     `Query.notContains("tags", "deprecated")`},

	{Name: "isNull", Group: GroupNull, Shape: ShapeAttrOnly,
		Description: "Attribute is null",
		Example:     `Query.isNull("deletedAt")`},
	{Name: "isNotNull", Group: GroupNull, Shape: ShapeAttrOnly,
		Description: "Attribute is not null",
		Example:     `Query.isNotNull("email")`},

	{Name: "orderAsc", Group: GroupOrder, Shape: ShapeAttrOnly,
		Description: "Sort by attribute, ascending",
		Example:     `Query.orderAsc("name")`},
	{Name: "orderDesc", Group: GroupOrder, Shape: ShapeAttrOnly,
		Description: "Sort by attribute, descending",
		Example:     `Query.orderDesc("$createdAt")`},
	{Name: "orderRandom", Group: GroupOrder, Shape: ShapeNone,
		Description: "Return results in random order",
		Example:     `Query.orderRandom()`},

	{Name: "limit", Group: GroupPagination, Shape: ShapeScalar, Kind: KindCount,
		Description: "Maximum number of results to return",
		Example:     `Query.limit(25)`},
	{Name: "offset", Group: GroupPagination, Shape: ShapeScalar, Kind: KindCount,
		Description: "Number of results to skip",
		Example:     `Query.offset(0)`},
	{Name: "cursorAfter", Group: GroupPagination, Shape: ShapeScalar, Kind: KindString,
		Description: "Return results after the document with this ID",
		Example:     `Query.cursorAfter("64f1c0e2")`},
	{Name: "cursorBefore", Group: GroupPagination, Shape: ShapeScalar, Kind: KindString,
		Description: "Return results before the document with this ID",
		Example:     `Query.cursorBefore("64f1c0e2")`},

	{Name: "select", Group: GroupSelection, Shape: ShapeNames,
		Description: "Only return the listed attributes",
		Example:     `Query.select(["name", "email"])`},

	{Name: "createdBefore", Group: GroupTemporal, Shape: ShapeScalar, Kind: KindDate,
		Description: "Created before the date",
		Example:     `Query.createdBefore("2024-01-01T00:00:00Z")`},
	{Name: "createdAfter", Group: GroupTemporal, Shape: ShapeScalar, Kind: KindDate,
		Description: "Created after the date",
		Example:     `Query.createdAfter("2024-01-01")`},
	{Name: "createdBetween", Group: GroupTemporal, Shape: ShapeRange, Kind: KindDate,
		Description: "Created between start and end",
		Example:     `Query.createdBetween("2024-01-01", "2024-12-31")`},
	{Name: "updatedBefore", Group: GroupTemporal, Shape: ShapeScalar, Kind: KindDate,
		Description: "Updated before the date",
		Example:     `Query.updatedBefore("2024-01-01")`},
	{Name: "updatedAfter", Group: GroupTemporal, Shape: ShapeScalar, Kind: KindDate,
		Description: "Updated after the date",
		Example:     `Query.updatedAfter("2024-01-01")`},
	{Name: "updatedBetween", Group: GroupTemporal, Shape: ShapeRange, Kind: KindDate,
		Description: "Updated between start and end",
		Example:     `Query.updatedBetween("2024-01-01", "2024-06-30")`},

	{Name: "distanceEqual", Group: GroupGeo, Shape: ShapeDistance,
		Description: "Geometry is exactly the distance from the attribute",
		Example:     `Query.distanceEqual("location", [40.7, -74.0], 1000)`},
	{Name: "distanceNotEqual", Group: GroupGeo, Shape: ShapeDistance,
		Description: "Geometry is not the distance from the attribute",
		Example:     `Query.distanceNotEqual("location", [40.7, -74.0], 1000)`},
	{Name: "distanceGreaterThan", Group: GroupGeo, Shape: ShapeDistance,
		Description: "Geometry is farther than the distance from the attribute",
		Example:     `Query.distanceGreaterThan("location", [40.7, -74.0], 1000)`},
	{Name: "distanceLessThan", Group: GroupGeo, Shape: ShapeDistance,
		Description: "Geometry is closer than the distance to the attribute",
		Example:     `Query.distanceLessThan("location", [40.7, -74.0], 1000, true)`},
	{Name: "intersects", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute intersects the geometry",
		Example:     `Query.intersects("area", [[0, 0], [0, 1], [1, 1], [0, 0]])`},
	{Name: "notIntersects", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute does not intersect the geometry",
		Example:     `Query.notIntersects("area", [1, 1])`},
	{Name: "crosses", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute crosses the geometry",
		Example:     `Query.crosses("route", [[0, 0], [1, 1]])`},
	{Name: "notCrosses", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute does not cross the geometry",
		Example:     `Query.notCrosses("route", [[0, 0], [1, 1]])`},
	{Name: "overlaps", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute overlaps the geometry",
		Example:     `Query.overlaps("area", [[0, 0], [0, 2], [2, 2], [0, 0]])`},
	{Name: "notOverlaps", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute does not overlap the geometry",
		Example:     `Query.notOverlaps("area", [[0, 0], [0, 2], [2, 2], [0, 0]])`},
	{Name: "touches", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute touches the geometry",
		Example:     `Query.touches("area", [[0, 0], [0, 1]])`},
	{Name: "notTouches", Group: GroupGeo, Shape: ShapeGeometry,
		Description: "Attribute does not touch the geometry",
		Example:     `Query.notTouches("area", [[0, 0], [0, 1]])`},

	{Name: "or", Group: GroupLogical, Shape: ShapeComposite,
		Description: "Any of the nested queries matches",
		Example:     `Query.or([Query.equal("a", "1"), Query.equal("b", "2")])`},
	{Name: "and", Group: GroupLogical, Shape: ShapeComposite,
		Description: "All of the nested queries match",
		Example:     `Query.and([Query.greaterThan("n", 1), Query.lessThan("n", 9)])`},
}

// DefaultCatalog returns a fresh catalog holding every built-in method.
func DefaultCatalog() *Catalog {
	return NewCatalog(builtinMethods...)
}

var facade = DefaultCatalog()

func build(method string, args ...any) (string, error) {
	t, err := facade.Build(method, args...)
	if err != nil {
		return "", err
	}
	return t.Serialize()
}

// Equal filters on attribute == value; value may be a slice to match any of several.
func Equal(attribute string, value any) (string, error) { return build("equal", attribute, value) }

// NotEqual filters on attribute != value.
func NotEqual(attribute string, value any) (string, error) {
	return build("notEqual", attribute, value)
}

// LessThan filters on attribute < value.
func LessThan(attribute string, value any) (string, error) {
	return build("lessThan", attribute, value)
}

// LessThanEqual filters on attribute <= value.
func LessThanEqual(attribute string, value any) (string, error) {
	return build("lessThanEqual", attribute, value)
}

// GreaterThan filters on attribute > value.
func GreaterThan(attribute string, value any) (string, error) {
	return build("greaterThan", attribute, value)
}

// GreaterThanEqual filters on attribute >= value.
func GreaterThanEqual(attribute string, value any) (string, error) {
	return build("greaterThanEqual", attribute, value)
}

// Between is inclusive on both ends.
func Between(attribute string, start, end any) (string, error) {
	return build("between", attribute, start, end)
}

// NotBetween matches values outside the inclusive range.
func NotBetween(attribute string, start, end any) (string, error) {
	return build("notBetween", attribute, start, end)
}

// StartsWith matches string attributes with the given prefix.
func StartsWith(attribute, value string) (string, error) {
	return build("startsWith", attribute, value)
}

// EndsWith matches string attributes with the given suffix.
func EndsWith(attribute, value string) (string, error) { return build("endsWith", attribute, value) }

// NotStartsWith excludes string attributes with the given prefix.
func NotStartsWith(attribute, value string) (string, error) {
	return build("notStartsWith", attribute, value)
}

// NotEndsWith excludes string attributes with the given suffix.
func NotEndsWith(attribute, value string) (string, error) {
	return build("notEndsWith", attribute, value)
}

// Search requires a fulltext index on the attribute.
func Search(attribute, value string) (string, error) { return build("search", attribute, value) }

// NotSearch excludes fulltext matches.
func NotSearch(attribute, value string) (string, error) {
	return build("notSearch", attribute, value)
}

// Contains matches array attributes holding value, or strings containing it.
func Contains(attribute string, value any) (string, error) {
	return build("contains", attribute, value)
}

// NotContains is the negation of Contains.
func NotContains(attribute string, value any) (string, error) {
	return build("notContains", attribute, value)
}

// IsNull matches documents where attribute is null.
func IsNull(attribute string) (string, error) { return build("isNull", attribute) }

// IsNotNull matches documents where attribute is set.
func IsNotNull(attribute string) (string, error) { return build("isNotNull", attribute) }

// OrderAsc sorts by attribute, lowest first.
func OrderAsc(attribute string) (string, error) { return build("orderAsc", attribute) }

// OrderDesc sorts by attribute, highest first.
func OrderDesc(attribute string) (string, error) { return build("orderDesc", attribute) }

// OrderRandom returns results in random order.
func OrderRandom() (string, error) { return build("orderRandom") }

// Limit caps the number of results; n must not be negative.
func Limit(n int) (string, error) { return build("limit", n) }

// Offset skips the first n results.
func Offset(n int) (string, error) { return build("offset", n) }

// CursorAfter pages forward from the document with the given ID.
func CursorAfter(documentID string) (string, error) { return build("cursorAfter", documentID) }

// CursorBefore pages backward from the document with the given ID.
func CursorBefore(documentID string) (string, error) { return build("cursorBefore", documentID) }

// Select restricts the returned attributes.
func Select(attributes ...string) (string, error) { return build("select", attributes) }

// CreatedBefore matches documents created before date (ISO 8601).
func CreatedBefore(date string) (string, error) { return build("createdBefore", date) }

// CreatedAfter matches documents created after date.
func CreatedAfter(date string) (string, error) { return build("createdAfter", date) }

// CreatedBetween matches documents created within the inclusive range.
func CreatedBetween(start, end string) (string, error) {
	return build("createdBetween", start, end)
}

// UpdatedBefore matches documents last updated before date.
func UpdatedBefore(date string) (string, error) { return build("updatedBefore", date) }

// UpdatedAfter matches documents last updated after date.
func UpdatedAfter(date string) (string, error) { return build("updatedAfter", date) }

// UpdatedBetween matches documents last updated within the inclusive range.
func UpdatedBetween(start, end string) (string, error) {
	return build("updatedBetween", start, end)
}

// DistanceEqual matches geometries at exactly distance from geometry. Distances
// are in meters when meters is true, otherwise in coordinate units.
func DistanceEqual(attribute string, geometry []any, distance float64, meters bool) (string, error) {
	return build("distanceEqual", attribute, geometry, distance, meters)
}

// DistanceNotEqual matches geometries not at distance from geometry.
func DistanceNotEqual(attribute string, geometry []any, distance float64, meters bool) (string, error) {
	return build("distanceNotEqual", attribute, geometry, distance, meters)
}

// DistanceGreaterThan matches geometries farther than distance from geometry.
func DistanceGreaterThan(attribute string, geometry []any, distance float64, meters bool) (string, error) {
	return build("distanceGreaterThan", attribute, geometry, distance, meters)
}

// DistanceLessThan matches geometries closer than distance to geometry.
func DistanceLessThan(attribute string, geometry []any, distance float64, meters bool) (string, error) {
	return build("distanceLessThan", attribute, geometry, distance, meters)
}

// Intersects matches geometries sharing any point with geometry.
func Intersects(attribute string, geometry []any) (string, error) {
	return build("intersects", attribute, geometry)
}

// NotIntersects matches geometries disjoint from geometry.
func NotIntersects(attribute string, geometry []any) (string, error) {
	return build("notIntersects", attribute, geometry)
}

// Crosses matches geometries that cross geometry.
func Crosses(attribute string, geometry []any) (string, error) {
	return build("crosses", attribute, geometry)
}

// NotCrosses is the negation of Crosses.
func NotCrosses(attribute string, geometry []any) (string, error) {
	return build("notCrosses", attribute, geometry)
}

// Overlaps matches geometries that partially overlap geometry.
func Overlaps(attribute string, geometry []any) (string, error) {
	return build("overlaps", attribute, geometry)
}

// NotOverlaps is the negation of Overlaps.
func NotOverlaps(attribute string, geometry []any) (string, error) {
	return build("notOverlaps", attribute, geometry)
}

// Touches matches geometries whose boundary meets geometry.
func Touches(attribute string, geometry []any) (string, error) {
	return build("touches", attribute, geometry)
}

// NotTouches is the negation of Touches.
func NotTouches(attribute string, geometry []any) (string, error) {
	return build("notTouches", attribute, geometry)
}

// Or matches when any child matches. Children are serialized tokens.
func Or(queries ...string) (string, error) { return build("or", stringsToAny(queries)) }

// And matches when every child matches. Children are serialized tokens.
func And(queries ...string) (string, error) { return build("and", stringsToAny(queries)) }

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
