package schema

/*
DefineResultRow renders a freshly defined type as the single result row
described in §4.C: every declared attribute, indexed or not, shown with
the value "*" - callers cannot distinguish the two from the response
(§9 open question).
*/
func DefineResultRow(t *Type) map[string]string {
	row := make(map[string]string, len(t.Attributes))
	for _, a := range t.Attributes {
		row[a.Name] = "*"
	}
	return row
}
