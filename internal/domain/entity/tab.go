package entity

// TabID uniquely identifies a tab.
type TabID string

// IDGenerator is a function that generates unique IDs.
type IDGenerator func() string
