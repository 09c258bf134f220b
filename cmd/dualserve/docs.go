package main

// General API documentation for swaggo.
//
// @title           dualserve health API
// @version         1.0
// @description     Health and status surface of the dualserve service supervisor.
//
// @contact.name   dualserve maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
