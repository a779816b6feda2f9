package fsbridge

// GEDCOM X type URIs used by FamilySearch payloads.
const (
	TypeGiven   = "http://gedcomx.org/Given"
	TypeSurname = "http://gedcomx.org/Surname"
	TypeBirth   = "http://gedcomx.org/Birth"
	TypeDeath   = "http://gedcomx.org/Death"
	TypeCouple  = "http://gedcomx.org/Couple"
)

// preferredNameForm selects the preferred name's first name form. A payload
// that is itself a name ({"nameForms": [...]}) is accepted as well.
var preferredNameForm = First(
	Chain(Path("names"), First(FindByField("preferred", true), Index(0)), Path("nameForms"), Index(0)),
	Chain(Path("nameForms"), Index(0)),
)

func namePart(partType string) Rule {
	return Chain(preferredNameForm, Path("parts"), FindByField("type", partType), Path("value"))
}

func factField(factType string, keys ...string) Rule {
	return Chain(Path("facts"), FindByField("type", factType), Path(keys...))
}

func registerBuiltinAccessors(r *Registry) {
	r.RegisterRule(ResourcePerson, "id", Path("id"))
	r.RegisterRule(ResourcePerson, "givenName", namePart(TypeGiven))
	r.RegisterRule(ResourcePerson, "surname", namePart(TypeSurname))
	r.RegisterRule(ResourcePerson, "fullName", First(
		Chain(preferredNameForm, Path("fullText")),
		Path("display", "name"),
	))
	r.RegisterRule(ResourcePerson, "gender", First(
		Path("gender", "type"),
		Path("display", "gender"),
	))
	r.RegisterRule(ResourcePerson, "lifespan", Path("display", "lifespan"))
	r.RegisterRule(ResourcePerson, "birthDate", First(
		factField(TypeBirth, "date", "original"),
		Path("display", "birthDate"),
	))
	r.RegisterRule(ResourcePerson, "birthPlace", First(
		factField(TypeBirth, "place", "original"),
		Path("display", "birthPlace"),
	))
	r.RegisterRule(ResourcePerson, "deathDate", First(
		factField(TypeDeath, "date", "original"),
		Path("display", "deathDate"),
	))
	r.RegisterRule(ResourcePerson, "deathPlace", First(
		factField(TypeDeath, "place", "original"),
		Path("display", "deathPlace"),
	))
	r.RegisterRule(ResourcePerson, "living", Path("living"))
	r.RegisterRule(ResourcePerson, "ascendancyNumber", Path("display", "ascendancyNumber"))

	r.RegisterRule(ResourceUser, "id", Path("id"))
	r.RegisterRule(ResourceUser, "personId", Path("personId"))
	r.RegisterRule(ResourceUser, "treeUserId", Path("treeUserId"))
	r.RegisterRule(ResourceUser, "displayName", Path("displayName"))
	r.RegisterRule(ResourceUser, "contactName", Path("contactName"))
	r.RegisterRule(ResourceUser, "email", Path("email"))
	r.RegisterRule(ResourceUser, "preferredLanguage", Path("preferredLanguage"))

	r.Register(ResourceAncestry, "persons", ListOf(Path("persons"), ResourcePerson))

	r.RegisterRule(ResourceRelationship, "id", Path("id"))
	r.RegisterRule(ResourceRelationship, "type", Path("type"))
	r.RegisterRule(ResourceRelationship, "person1", Path("person1", "resourceId"))
	r.RegisterRule(ResourceRelationship, "person2", Path("person2", "resourceId"))

	r.Register(ResourcePersonWithRelationships, "persons", ListOf(Path("persons"), ResourcePerson))
	r.Register(ResourcePersonWithRelationships, "relationships", ListOf(Path("relationships"), ResourceRelationship))
}

// Person is a decorated tree person.
type Person struct {
	*Decorated
}

func (p *Person) ID() (string, bool)               { return p.String("id") }
func (p *Person) GivenName() (string, bool)        { return p.String("givenName") }
func (p *Person) Surname() (string, bool)          { return p.String("surname") }
func (p *Person) FullName() (string, bool)         { return p.String("fullName") }
func (p *Person) Gender() (string, bool)           { return p.String("gender") }
func (p *Person) Lifespan() (string, bool)         { return p.String("lifespan") }
func (p *Person) BirthDate() (string, bool)        { return p.String("birthDate") }
func (p *Person) BirthPlace() (string, bool)       { return p.String("birthPlace") }
func (p *Person) DeathDate() (string, bool)        { return p.String("deathDate") }
func (p *Person) DeathPlace() (string, bool)       { return p.String("deathPlace") }
func (p *Person) Living() (bool, bool)             { return p.Bool("living") }
func (p *Person) AscendancyNumber() (string, bool) { return p.String("ascendancyNumber") }

// User is the decorated current user.
type User struct {
	*Decorated
}

func (u *User) ID() (string, bool)                { return u.String("id") }
func (u *User) PersonID() (string, bool)          { return u.String("personId") }
func (u *User) TreeUserID() (string, bool)        { return u.String("treeUserId") }
func (u *User) DisplayName() (string, bool)       { return u.String("displayName") }
func (u *User) ContactName() (string, bool)       { return u.String("contactName") }
func (u *User) Email() (string, bool)             { return u.String("email") }
func (u *User) PreferredLanguage() (string, bool) { return u.String("preferredLanguage") }

// Relationship is a decorated couple or parent-child relationship.
type Relationship struct {
	*Decorated
}

func (r *Relationship) ID() (string, bool)      { return r.String("id") }
func (r *Relationship) Type() (string, bool)    { return r.String("type") }
func (r *Relationship) Person1() (string, bool) { return r.String("person1") }
func (r *Relationship) Person2() (string, bool) { return r.String("person2") }

// Ancestry is a decorated pedigree returned by the ancestry endpoint.
type Ancestry struct {
	*Decorated
}

// Persons returns every person in the pedigree.
func (a *Ancestry) Persons() []*Person {
	list, _ := a.List("persons")
	return asPersons(list)
}

// Person returns the person at an Ahnentafel position: 1 is the root, 2 and 3
// its father and mother, and so on.
func (a *Ancestry) Person(ascendancyNumber string) (*Person, bool) {
	for _, p := range a.Persons() {
		if n, ok := p.AscendancyNumber(); ok && n == ascendancyNumber {
			return p, true
		}
	}
	return nil, false
}

// PersonWithRelationships is a person together with its close family.
type PersonWithRelationships struct {
	*Decorated
	personID string
}

// Person returns the person the request was made for.
func (p *PersonWithRelationships) Person() (*Person, bool) {
	for _, person := range p.Persons() {
		if id, ok := person.ID(); ok && id == p.personID {
			return person, true
		}
	}
	return nil, false
}

// Persons returns every person in the payload, including relatives.
func (p *PersonWithRelationships) Persons() []*Person {
	list, _ := p.List("persons")
	return asPersons(list)
}

// Relationships returns the couple relationships in the payload.
func (p *PersonWithRelationships) Relationships() []*Relationship {
	list, _ := p.List("relationships")
	out := make([]*Relationship, 0, len(list))
	for _, d := range list {
		out = append(out, &Relationship{Decorated: d})
	}
	return out
}

// Spouses returns the ids of persons related to the root person by a couple
// relationship.
func (p *PersonWithRelationships) Spouses() []string {
	var ids []string
	for _, rel := range p.Relationships() {
		if t, _ := rel.Type(); t != TypeCouple {
			continue
		}
		p1, _ := rel.Person1()
		p2, _ := rel.Person2()
		switch p.personID {
		case p1:
			ids = append(ids, p2)
		case p2:
			ids = append(ids, p1)
		}
	}
	return ids
}

func asPersons(list []*Decorated) []*Person {
	out := make([]*Person, 0, len(list))
	for _, d := range list {
		out = append(out, &Person{Decorated: d})
	}
	return out
}
