// Package action builds the commands accepted by the vehicle command REST endpoints.
//
// Each builder returns a [Command] naming the endpoint under api/1/vehicles/{id}/command/ and the
// JSON parameters it expects. Builders don't perform I/O; pass the result to
// session.Session.Execute or account.Account.SendCommand.
package action

// Command is a request for the vehicle to perform an action.
type Command struct {
	// Name is the final path element of the command endpoint, e.g. "door_lock".
	Name string
	// Params is serialized as the JSON request body. Nil commands are sent with an empty body.
	Params map[string]interface{}
}

func (c *Command) String() string {
	return c.Name
}

func simple(name string) *Command {
	return &Command{Name: name}
}
