package core

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string
	Total    float64
}
