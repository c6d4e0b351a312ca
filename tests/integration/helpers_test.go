package integration

import "github.com/TFMV/scour/pkg/core"

// dirtyDataset has a duplicated row, missing ages and a padded city.
func dirtyDataset(name string) *core.Dataset {
	age := core.NewColumn("age", core.TypeUnknown, "34", "", "34", "51", "")
	age.Values[1] = core.NullValue()
	age.Values[4] = core.NullValue()
	return &core.Dataset{
		Name: name,
		Columns: []*core.Column{
			core.NewColumn("id", core.TypeUnknown, "1", "2", "1", "3", "4"),
			age,
			core.NewColumn("city", core.TypeUnknown, "Oslo", " Oslo", "Oslo", "Bergen", "Bergen"),
		},
	}
}
