// Package models defines the client-side data model of the FoodShare
// marketplace: principals, user profiles, listings, food requests and
// payment intents. Wire formats live in the gateway; these types carry no
// JSON tags.
package models
