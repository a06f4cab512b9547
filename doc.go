// Package auth implements a multi tenant authentication and user management
// backend (JWT issuance, stateful repositories, HTTP controllers) for the
// Good Food platform.
//
// Tokens:
//   - TokenService mints three signed token kinds: short lived access tokens,
//     refresh tokens, and single purpose magic tokens used for email
//     verification. The kind travels inside the signed payload so a token can
//     never be replayed against an endpoint expecting a different kind.
//   - Refresh always re reads the user from persistence, so revoked roles or
//     a deleted account invalidate outstanding refresh tokens on first use.
//
// Tenancy:
//   - Users optionally belong to a franchise. Authorization combines role
//     checks (ADMIN, FRANCHISE_OWNER, STAFF, CUSTOMER) with franchise scoping:
//     admins operate anywhere, franchise owners only inside their own
//     franchise. RoutePolicies binds each protected route to its policy.
//
// Registration:
//   - RegisterUserHandler creates accounts transactionally, assigns the
//     CUSTOMER role by default, and publishes a magic link notification to a
//     RabbitMQ queue. Publishing is fire and forget: a broker outage never
//     fails a registration.
package auth
